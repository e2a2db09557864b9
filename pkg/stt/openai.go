// Package stt turns captured speech into text.
package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/voice-arm/controller/pkg/audio"
)

// DefaultOpenAIModel is the transcription model used when none is configured.
const DefaultOpenAIModel = "whisper-1"

// ErrMissingAPIKey is returned when the OpenAI engine has no API key.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY not set")

// OpenAIOptions configure the hosted transcription engine.
type OpenAIOptions struct {
	APIKey   string
	Model    string       // defaults to DefaultOpenAIModel
	Language string       // ISO-639-1 hint, empty for auto
	Prompt   string       // biases recognition toward the command words
	BaseURL  string       // optional API endpoint override
	HTTP     *http.Client // optional, e.g. a SOCKS proxy client
}

// OpenAITranscriber sends WAV uploads to the OpenAI transcription API.
type OpenAITranscriber struct {
	client openai.Client
	opt    OpenAIOptions
}

// NewOpenAITranscriber creates a transcriber for the hosted engine.
func NewOpenAITranscriber(opt OpenAIOptions) (*OpenAITranscriber, error) {
	if opt.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opt.Model == "" {
		opt.Model = DefaultOpenAIModel
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opt.APIKey)}
	if opt.HTTP != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opt.HTTP))
	}
	if opt.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opt.BaseURL))
	}

	return &OpenAITranscriber{
		client: openai.NewClient(reqOpts...),
		opt:    opt,
	}, nil
}

// Transcribe uploads 16 kHz mono samples and returns the recognized text.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	if len(pcm) == 0 {
		return "", errors.New("no audio samples provided")
	}

	wav, err := audio.EncodeWAV(pcm, audio.SampleRate)
	if err != nil {
		return "", err
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "speech.wav", "audio/wav"),
		Model: openai.AudioModel(t.opt.Model),
	}
	if t.opt.Language != "" && t.opt.Language != "auto" {
		params.Language = openai.String(t.opt.Language)
	}
	if t.opt.Prompt != "" {
		params.Prompt = openai.String(t.opt.Prompt)
	}

	res, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}
