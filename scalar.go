package qorus

import (
	"errors"
	"strconv"
	"strings"
)

const (
	_Ki = 1 << ((iota + 1) * 10)
	_Mi
	_Gi
	_Ti
	_Pi
)

const (
	_K = 1e3
	_M = 1e6
	_G = 1e9
	_T = 1e12
	_P = 1e15
)

const (
	_Thousand    = 1e3
	_Million     = 1e6
	_Billion     = 1e9
	_Trillion    = 1e12
	_Quadrillion = 1e15
)

type (
	// ModelBytesScalar is the scalar for a model file's size in bytes.
	ModelBytesScalar uint64

	// ParametersScalar is the scalar for a model's parameter count.
	ParametersScalar uint64

	// BitsPerWeightScalar is the scalar for bits per weight.
	BitsPerWeightScalar float64
)

var (
	// _GeneralBaseUnitMatrix is the base unit matrix for bytes.
	_GeneralBaseUnitMatrix = []struct {
		Base float64
		Unit string
	}{
		{_Pi, "Pi"},
		{_P, "P"},
		{_Ti, "Ti"},
		{_T, "T"},
		{_Gi, "Gi"},
		{_G, "G"},
		{_Mi, "Mi"},
		{_M, "M"},
		{_Ki, "Ki"},
		{_K, "K"},
	}

	// _NumberBaseUnitMatrix is the base unit matrix for numbers.
	_NumberBaseUnitMatrix = []struct {
		Base float64
		Unit string
	}{
		{_Quadrillion, "Q"},
		{_Trillion, "T"},
		{_Billion, "B"},
		{_Million, "M"},
		{_Thousand, "K"},
	}
)

// ParseModelBytesScalar parses the ModelBytesScalar from the string.
func ParseModelBytesScalar(s string) (_ ModelBytesScalar, err error) {
	if s == "" {
		return 0, errors.New("invalid ModelBytesScalar")
	}
	s = strings.TrimSuffix(s, "B")
	b := float64(1)
	for i := range _GeneralBaseUnitMatrix {
		if strings.HasSuffix(s, _GeneralBaseUnitMatrix[i].Unit) {
			b = _GeneralBaseUnitMatrix[i].Base
			s = strings.TrimSuffix(s, _GeneralBaseUnitMatrix[i].Unit)
			break
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return ModelBytesScalar(f * b), nil
}

// ModelBytesScalarStringInMiBytes is the flag to show the ModelBytesScalar string in MiB.
var ModelBytesScalarStringInMiBytes bool

func (s ModelBytesScalar) String() string {
	if s == 0 {
		return "0 B"
	}
	b, u := float64(1), ""
	if ModelBytesScalarStringInMiBytes {
		b = _Mi
		u = "Mi"
	} else {
		for i := range _GeneralBaseUnitMatrix {
			if float64(s) >= _GeneralBaseUnitMatrix[i].Base {
				b = _GeneralBaseUnitMatrix[i].Base
				u = _GeneralBaseUnitMatrix[i].Unit
				break
			}
		}
	}
	f := strconv.FormatFloat(float64(s)/b, 'f', 2, 64)
	return strings.TrimSuffix(f, ".00") + " " + u + "B"
}

func (s ParametersScalar) String() string {
	if s == 0 {
		return "0"
	}
	b, u := float64(1), ""
	for i := range _NumberBaseUnitMatrix {
		if float64(s) >= _NumberBaseUnitMatrix[i].Base {
			b = _NumberBaseUnitMatrix[i].Base
			u = _NumberBaseUnitMatrix[i].Unit
			break
		}
	}
	f := strconv.FormatFloat(float64(s)/b, 'f', 2, 64)
	return strings.TrimSuffix(f, ".00") + " " + u
}

func (s BitsPerWeightScalar) String() string {
	if s <= 0 {
		return "0 bpw"
	}
	return strconv.FormatFloat(float64(s), 'f', 2, 64) + " bpw"
}
