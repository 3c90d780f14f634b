// ABOUTME: Audio encoder package for encoding PCM to raw sample formats
// ABOUTME: Provides Encoder interface and the PCM implementation
// Package encode provides audio encoders for raw PCM output.
//
// Supports: PCM unsigned 8-bit, signed 16-bit and signed 24-bit little-endian.
//
// All encoders accept int32 samples in 24-bit range. LTC produced by
// pkg/ltc is unsigned 8-bit; widen it with audio.SampleFromUint8 first.
//
// Example:
//
//	encoder, err := encode.NewPCM(format)
//	data, err := encoder.Encode(samples)
package encode
