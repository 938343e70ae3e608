package qorus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseModelBytesScalar(t *testing.T) {
	testCases := []struct {
		given    string
		expected ModelBytesScalar
	}{
		{"1B", 1},
		{"1KB", 1 * _K},
		{"1MB", 1 * _M},
		{"1GB", 1 * _G},
		{"1TB", 1 * _T},
		{"1PB", 1 * _P},
		{"1KiB", 1 * _Ki},
		{"1MiB", 1 * _Mi},
		{"1GiB", 1 * _Gi},
		{"1TiB", 1 * _Ti},
		{"1PiB", 1 * _Pi},
	}
	for _, tc := range testCases {
		t.Run(tc.given, func(t *testing.T) {
			actual, err := ParseModelBytesScalar(tc.given)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, tc.expected, actual)
		})
	}
}
