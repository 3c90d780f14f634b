// ABOUTME: Linear timecode codec package
// ABOUTME: Frame layout, timecode conversion, arithmetic, encoder, decoder and frame queue
// Package ltc encodes and decodes SMPTE Linear Timecode (LTC).
//
// An LTC frame is 80 bit cells carried as a biphase-mark audio signal: every
// cell boundary has a transition and a logical 1 adds one in the middle of
// the cell. Frames end with a 16-bit sync word, which also tells the decoder
// whether the tape is running forward or backward.
//
// The package covers:
//   - Frame: the 10-byte on-wire layout with BCD time fields, flags and user bits
//   - Timecode conversion with optional date and SMPTE 309M timezone
//   - Frame increment/decrement with drop-frame and date rollover
//   - Encoder: frames to unsigned 8-bit samples with volume and rise-time shaping
//   - Decoder: a streaming demodulator that tolerates clock drift and noise
//   - FrameQueue: the bounded queue between decoder and reader
//
// The package performs no file or device I/O.
//
// Example:
//
//	enc, err := ltc.NewEncoder(48000, 25, ltc.TV625_50, ltc.UseDate)
//	enc.SetTimecode(ltc.Timecode{Timezone: "+0100", Years: 24, Months: 3, Days: 1, Hours: 10})
//	for i := 0; i < 25; i++ {
//	    if err := enc.EncodeFrame(); err != nil {
//	        return err
//	    }
//	    out.Write(enc.Buffer(true))
//	    enc.IncTimecode()
//	}
//
//	dec, err := ltc.NewDecoder(ltc.DecoderConfig{SamplesPerFrame: 1920})
//	dec.Write(samples, 0)
//	for {
//	    fe, ok := dec.Read()
//	    if !ok {
//	        break
//	    }
//	    fmt.Println(ltc.FrameToTimecode(fe.Frame, ltc.UseDate))
//	}
package ltc
