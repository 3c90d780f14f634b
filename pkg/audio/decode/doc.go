// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides Decoder and Stream interfaces for PCM, FLAC, MP3
// Package decode provides audio decoders for the formats LTC is commonly
// recorded in.
//
// Supports: PCM (unsigned 8-bit, signed 16-bit and 24-bit), FLAC, MP3
//
// PCM chunks go through the Decoder interface. Files are read through the
// Stream interface, which yields interleaved int32 samples in 24-bit range.
//
// Example:
//
//	stream, err := decode.Open(file, audio.Format{Codec: "flac"})
//	n, err := stream.Read(samples)
package decode
