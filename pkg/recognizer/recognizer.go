// Package recognizer joins an audio source and a transcription engine into
// the voice loop's Recognizer.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voice-arm/controller/pkg/audio"
	customlog "github.com/voice-arm/controller/pkg/log"
	"github.com/voice-arm/controller/pkg/voice"
)

// DefaultWindow is how long to wait for speech to start.
const DefaultWindow = 5 * time.Second

// Capturer records one utterance as 16 kHz mono samples. It returns
// audio.ErrNoSpeech when nothing was said within the window.
type Capturer interface {
	Capture(ctx context.Context, window time.Duration) ([]float32, error)
}

// Transcriber converts 16 kHz mono samples to text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

// Recognizer listens once per call and returns lower-cased text.
type Recognizer struct {
	capture    Capturer
	transcribe Transcriber
	window     time.Duration
	logger     customlog.Logger
}

// New creates a recognizer. A zero window uses DefaultWindow.
func New(c Capturer, t Transcriber, window time.Duration, logger customlog.Logger) *Recognizer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Recognizer{capture: c, transcribe: t, window: window, logger: logger}
}

// Recognize captures and transcribes one utterance.
func (r *Recognizer) Recognize(ctx context.Context) (string, error) {
	r.logger.Infof("Listening...")
	pcm, err := r.capture.Capture(ctx, r.window)
	if err != nil {
		if errors.Is(err, audio.ErrNoSpeech) {
			return "", voice.ErrNoSpeech
		}
		return "", fmt.Errorf("capture: %w", err)
	}
	return r.text(ctx, pcm)
}

func (r *Recognizer) text(ctx context.Context, pcm []float32) (string, error) {
	r.logger.Debugf("Transcribing %d samples", len(pcm))
	start := time.Now()
	text, err := r.transcribe.Transcribe(ctx, pcm)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	r.logger.Debugf("Transcription took %s", time.Since(start).Round(time.Millisecond))

	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", voice.ErrNotUnderstood
	}
	return text, nil
}

// FromFile transcribes a single audio file (wav, mp3 or ogg).
func (r *Recognizer) FromFile(ctx context.Context, path string) (string, error) {
	pcm, err := audio.DecodeFile(path)
	if err != nil {
		return "", err
	}
	if !audio.HasSpeech(pcm) {
		return "", voice.ErrNoSpeech
	}
	return r.text(ctx, pcm)
}
