// Package mic captures speech from the default input device through PortAudio.
package mic

import (
	"context"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/voice-arm/controller/pkg/audio"
)

const (
	frameSize       = 320 // 20ms at 16 kHz
	frameDuration   = 20 * time.Millisecond
	silenceDuration = 600 * time.Millisecond
	maxLength       = 10 * time.Second
)

// Recorder listens on the default microphone.
type Recorder struct{}

// NewRecorder creates a recorder. Init must be called before Capture.
func NewRecorder() *Recorder { return &Recorder{} }

// Init initializes PortAudio.
func (r *Recorder) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("init portaudio: %w", err)
	}
	return nil
}

// Close releases PortAudio.
func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Capture waits up to timeout for speech to start, then records until
// trailing silence or the maximum utterance length. It returns
// audio.ErrNoSpeech when nobody spoke within timeout.
func (r *Recorder) Capture(ctx context.Context, timeout time.Duration) ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, audio.SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, audio.SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
		waitFrames    = int(timeout / frameDuration)
		maxFrames     = int(maxLength / frameDuration)
		trailFrames   = int(silenceDuration / frameDuration)
	)

	for i := 0; ; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !speaking && i >= waitFrames {
			return nil, audio.ErrNoSpeech
		}
		if speaking && len(out) >= maxFrames*frameSize {
			break
		}

		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input stream: %w", err)
		}

		if audio.FrameRMS(buf) > audio.SilenceThresholdRMS {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}
		if speaking {
			silenceFrames++
			if silenceFrames >= trailFrames {
				break
			}
			out = append(out, buf...)
		}
	}

	return out, nil
}
