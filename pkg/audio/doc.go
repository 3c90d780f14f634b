// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and sample conversion functions
// Package audio provides the sample types shared by the LTC codec and its
// file, stream and playback adapters.
//
// Samples travel between packages as int32 values in 24-bit range. The LTC
// codec itself works on unsigned 8-bit samples centred at 128, so this
// package also provides the narrowing conversions the decoder uses:
//   - int32 (24-bit), int16, uint16 and float to uint8
//   - 16-bit ↔ 24-bit conversions
//   - int32 ↔ packed byte conversions
//
// Example:
//
//	format := audio.Format{
//	    Codec:      "pcm",
//	    SampleRate: 48000,
//	    Channels:   1,
//	    BitDepth:   8,
//	}
//
//	// Feed a 16-bit sample to an 8-bit consumer
//	u8 := audio.Int16ToUint8(sample16)
package audio
