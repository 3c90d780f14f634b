// ABOUTME: Sentinel errors returned by the LTC codec
// ABOUTME: Grouped by construction, configuration, encode and arithmetic failures
package ltc

import "errors"

// Construction errors
var (
	ErrInvalidSampleRate = errors.New("ltc: sample rate must be at least 1")
	ErrInvalidFPS        = errors.New("ltc: invalid frame rate")
	ErrInvalidStandard   = errors.New("ltc: invalid TV standard")
	ErrInvalidConfig     = errors.New("ltc: invalid decoder configuration")
)

// Configuration errors
var (
	ErrInvalidVolume  = errors.New("ltc: volume out of range")
	ErrBufferTooSmall = errors.New("ltc: buffer too small for one frame")
)

// Encode errors
var (
	ErrInvalidByte  = errors.New("ltc: byte index out of range (0-9)")
	ErrInvalidSpeed = errors.New("ltc: speed must be non-zero")
	ErrBufferFull   = errors.New("ltc: encoder buffer full")
)
