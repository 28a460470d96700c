// AFSK software-modem transport: encodes/decodes DTR frames as Bell
// 202-style audio tones over a sound card, the direct analogue of the
// teacher's own audio.go/demod_afsk.go (its core TNC modem, built around
// the same portaudio dependency). DTR frames are short and infrequent
// compared to APRS traffic, so a minimal non-return-to-zero tone encoding
// is enough here; the teacher's own HDLC/bit-stuffing machinery is not
// reused since DTR frames are already self-framing by packet_size.
package radio

import (
	"fmt"
	"math"

	"github.com/gordonklaus/portaudio"
)

const (
	afskSampleRate = 44100.0
	afskMarkHz     = 1200.0 // '1' tone
	afskSpaceHz    = 2200.0 // '0' tone
	afskBaud       = 1200.0
)

// AFSK is a Radio that transmits/receives over the default audio device.
type AFSK struct {
	stream  *portaudio.Stream
	out     []float32
	inbound chan []byte
	done    chan struct{}
}

// NewAFSK opens the default audio input/output device and starts the
// receive demodulation goroutine.
func NewAFSK() (*AFSK, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("radio: portaudio init: %w", err)
	}

	a := &AFSK{
		inbound: make(chan []byte, 8),
		done:    make(chan struct{}),
	}

	framesPerBuffer := int(afskSampleRate * 0.02) // 20ms buffers
	in := make([]float32, framesPerBuffer)
	out := make([]float32, framesPerBuffer)
	a.out = out

	stream, err := portaudio.OpenDefaultStream(1, 1, afskSampleRate, framesPerBuffer, in, out)
	if err != nil {
		_ = portaudio.Terminate()

		return nil, fmt.Errorf("radio: opening audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = portaudio.Terminate()

		return nil, fmt.Errorf("radio: starting audio stream: %w", err)
	}

	a.stream = stream

	go a.receiveLoop(in)

	return a, nil
}

// SendBroadcast modulates raw as a series of mark/space tones and plays
// them out the configured audio device.
func (a *AFSK) SendBroadcast(raw []byte) error {
	samples := modulateAFSK(raw)

	for off := 0; off < len(samples); off += len(a.out) {
		n := copy(a.out, samples[off:])
		for i := n; i < len(a.out); i++ {
			a.out[i] = 0
		}

		if err := a.stream.Write(); err != nil {
			return fmt.Errorf("radio: writing audio samples: %w", err)
		}
	}

	return nil
}

func (a *AFSK) Inbound() <-chan []byte { return a.inbound }

func (a *AFSK) Close() error {
	close(a.done)
	close(a.inbound)

	if err := a.stream.Close(); err != nil {
		return err
	}

	return portaudio.Terminate()
}

// receiveLoop pulls audio buffers and hands complete demodulated frames to
// Inbound. Demodulation itself lives in afskDecoder.process (afsk_demod.go).
func (a *AFSK) receiveLoop(in []float32) {
	dec := newAFSKDecoder()

	for {
		select {
		case <-a.done:
			return
		default:
		}

		if err := a.stream.Read(); err != nil {
			return
		}

		for _, frame := range dec.process(in) {
			select {
			case a.inbound <- frame:
			case <-a.done:
				return
			}
		}
	}
}

// modulateAFSK renders raw as mark/space tone samples at afskBaud bits per
// second, one bit per samplesPerBit samples, NRZ (no bit-stuffing — DTR
// frames are length-prefixed, not flag-delimited).
func modulateAFSK(raw []byte) []float32 {
	samplesPerBit := int(afskSampleRate / afskBaud)
	samples := make([]float32, 0, len(raw)*8*samplesPerBit)

	phase := 0.0
	for _, b := range raw {
		for bit := 0; bit < 8; bit++ {
			freq := afskSpaceHz
			if b&(1<<bit) != 0 {
				freq = afskMarkHz
			}

			step := 2 * math.Pi * freq / afskSampleRate
			for i := 0; i < samplesPerBit; i++ {
				samples = append(samples, float32(math.Sin(phase)))
				phase += step
			}
		}
	}

	return samples
}
