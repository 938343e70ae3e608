package qorus

import (
	"errors"
	"fmt"
)

// Code is a stable, human-readable error classification, a
// table-driven Go stringer over the engine's error taxonomy.
type Code uint8

// Error codes, one per failure mode the engine's load/build/forward
// pipeline can report.
const (
	CodeOK Code = iota
	CodeNullPointer
	CodeFileOpen
	CodeFileStat
	CodeFileTooSmall
	CodeMmapFailed
	CodeInvalidMagic
	CodeAllocFailed
	CodeArenaOom
	CodeInvalidConfig
	CodeInvalidArg
	CodeAliasing
	CodeOverflow
	CodeMisaligned
	CodeInvalidDtype
	CodeInvalidSize
	_codeCount
)

var _codeStrings = [...]string{
	CodeOK:            "OK",
	CodeNullPointer:   "NullPointer",
	CodeFileOpen:      "FileOpen",
	CodeFileStat:      "FileStat",
	CodeFileTooSmall:  "FileTooSmall",
	CodeMmapFailed:    "MmapFailed",
	CodeInvalidMagic:  "InvalidMagic",
	CodeAllocFailed:   "AllocFailed",
	CodeArenaOom:      "ArenaOom",
	CodeInvalidConfig: "InvalidConfig",
	CodeInvalidArg:    "InvalidArg",
	CodeAliasing:      "Aliasing",
	CodeOverflow:      "Overflow",
	CodeMisaligned:    "Misaligned",
	CodeInvalidDtype:  "InvalidDtype",
	CodeInvalidSize:   "InvalidSize",
}

// String implements fmt.Stringer.
func (c Code) String() string {
	if c >= _codeCount {
		return "Unknown"
	}
	return _codeStrings[c]
}

// Sentinel errors, one per Code other than CodeOK. Call sites wrap
// these with wrapf (fmt.Errorf("%w: ...")).
var (
	ErrNullPointer   = errors.New(CodeNullPointer.String())
	ErrFileOpen      = errors.New(CodeFileOpen.String())
	ErrFileStat      = errors.New(CodeFileStat.String())
	ErrFileTooSmall  = errors.New(CodeFileTooSmall.String())
	ErrMmapFailed    = errors.New(CodeMmapFailed.String())
	ErrInvalidMagic  = errors.New(CodeInvalidMagic.String())
	ErrAllocFailed   = errors.New(CodeAllocFailed.String())
	ErrArenaOom      = errors.New(CodeArenaOom.String())
	ErrInvalidConfig = errors.New(CodeInvalidConfig.String())
	ErrInvalidArg    = errors.New(CodeInvalidArg.String())
	ErrAliasing      = errors.New(CodeAliasing.String())
	ErrOverflow      = errors.New(CodeOverflow.String())
	ErrMisaligned    = errors.New(CodeMisaligned.String())
	ErrInvalidDtype  = errors.New(CodeInvalidDtype.String())
	ErrInvalidSize   = errors.New(CodeInvalidSize.String())

	// ErrInvalidState signals a forward/session state-machine
	// transition that isn't allowed (e.g. Forward before KVAllocated).
	ErrInvalidState = errors.New("InvalidState")

	// ErrSessionPoisoned is returned by Forward once a prior call has
	// left the KV cache in a partially-written state. No rollback is
	// attempted; the session must be discarded.
	ErrSessionPoisoned = errors.New("SessionPoisoned")
)

var _errToCode = map[error]Code{
	ErrNullPointer:   CodeNullPointer,
	ErrFileOpen:      CodeFileOpen,
	ErrFileStat:      CodeFileStat,
	ErrFileTooSmall:  CodeFileTooSmall,
	ErrMmapFailed:    CodeMmapFailed,
	ErrInvalidMagic:  CodeInvalidMagic,
	ErrAllocFailed:   CodeAllocFailed,
	ErrArenaOom:      CodeArenaOom,
	ErrInvalidConfig: CodeInvalidConfig,
	ErrInvalidArg:    CodeInvalidArg,
	ErrAliasing:      CodeAliasing,
	ErrOverflow:      CodeOverflow,
	ErrMisaligned:    CodeMisaligned,
	ErrInvalidDtype:  CodeInvalidDtype,
	ErrInvalidSize:   CodeInvalidSize,
}

// CodeOf classifies err against the engine's sentinel errors, walking
// the wrap chain with errors.Is. Returns CodeOK for a nil error and
// Code(_codeCount) (String() == "Unknown") for anything unrecognized.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for sentinel, code := range _errToCode {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return _codeCount
}

// wrapf wraps sentinel with fmt.Errorf("%w: ...") and a formatted
// message, so callers can classify the result with errors.Is or CodeOf.
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
}
