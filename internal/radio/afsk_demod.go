package radio

import "math"

// afskDecoder demodulates a stream of audio samples back into bytes using a
// per-bit Goertzel tone test (mark vs. space energy), then resynchronizes
// on packet_size the same way Serial.readLoop does for a byte stream. This
// is a minimal decision-directed demodulator, not the teacher's full
// PLL-based bit recovery (demod_afsk.go) — DTR's frames are short control
// messages, not continuous APRS traffic, so simple per-bit sampling is
// adequate.
type afskDecoder struct {
	bitAcc   []float64
	pending  []byte
	bitBuf   byte
	bitCount int
}

func newAFSKDecoder() *afskDecoder {
	return &afskDecoder{}
}

// process consumes one audio buffer and returns any whole frames completed
// by it.
func (d *afskDecoder) process(buf []float32) [][]byte {
	samplesPerBit := int(afskSampleRate / afskBaud)

	var frames [][]byte

	for off := 0; off+samplesPerBit <= len(buf); off += samplesPerBit {
		bit := decideBit(buf[off : off+samplesPerBit])

		d.bitBuf >>= 1
		if bit {
			d.bitBuf |= 0x80
		}
		d.bitCount++

		if d.bitCount == 8 {
			d.pending = append(d.pending, d.bitBuf)
			d.bitBuf = 0
			d.bitCount = 0

			if frame, ok := d.tryExtractFrame(); ok {
				frames = append(frames, frame)
			}
		}
	}

	return frames
}

// tryExtractFrame checks whether d.pending now holds a complete
// self-describing frame (byte 0 is packet_size) and, if so, removes and
// returns it.
func (d *afskDecoder) tryExtractFrame() ([]byte, bool) {
	if len(d.pending) == 0 {
		return nil, false
	}

	size := int(d.pending[0])
	if size < 5 || size > 5+64 { // outside HeaderSize..HeaderSize+MaxPayload
		// Not a usable packet_size: discard it and resync on the next byte.
		d.pending = d.pending[1:]

		return nil, false
	}
	if len(d.pending) < size {
		return nil, false
	}

	frame := make([]byte, size)
	copy(frame, d.pending[:size])
	d.pending = d.pending[size:]

	return frame, true
}

// decideBit reports whether the dominant tone in samples is the mark
// frequency, via a single-bin Goertzel power estimate for each candidate
// frequency.
func decideBit(samples []float32) bool {
	return goertzelPower(samples, afskMarkHz) >= goertzelPower(samples, afskSpaceHz)
}

func goertzelPower(samples []float32, freq float64) float64 {
	n := len(samples)
	k := int(0.5 + float64(n)*freq/afskSampleRate)
	w := 2 * math.Pi * float64(k) / float64(n)
	coeff := 2 * math.Cos(w)

	var s0, s1, s2 float64
	for _, x := range samples {
		s0 = float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	return s1*s1 + s2*s2 - coeff*s1*s2
}
