package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/voice-arm/controller/internal/notify"
	"github.com/voice-arm/controller/internal/proxy"
	"github.com/voice-arm/controller/pkg/audio"
	"github.com/voice-arm/controller/pkg/audio/mic"
	"github.com/voice-arm/controller/pkg/client"
	customlog "github.com/voice-arm/controller/pkg/log"
	"github.com/voice-arm/controller/pkg/recognizer"
	"github.com/voice-arm/controller/pkg/stt"
	"github.com/voice-arm/controller/pkg/stt/whisper"
	"github.com/voice-arm/controller/pkg/voice"
)

// closer is satisfied by the engines and senders that hold resources.
type closer interface {
	Close() error
}

func main() {
	debug := flag.BoolP("debug", "d", false, "Type commands instead of speaking them")
	host := flag.String("host", client.DefaultHost, "Controller host")
	port := flag.IntP("port", "p", client.DefaultPort, "Controller command port")
	logLevel := flag.StringP("log", "l", "info", "Log level (debug, info, warn, error)")
	logDir := flag.String("log-dir", "", "Directory for voice-control.log (console only when empty)")
	envFile := flag.StringP("env", "e", ".env", "Env file path")
	engine := flag.String("engine", "openai", "Speech engine: openai or whisper")
	model := flag.StringP("model", "m", "", "OpenAI model name or whisper model path")
	language := flag.String("language", "en", "Spoken language hint (auto to detect)")
	socks := flag.String("proxy", "", "SOCKS5 proxy for the OpenAI API (host:port or user:pass@host:port)")
	apiTimeout := flag.Duration("api-timeout", proxy.DefaultTimeout, "Timeout for one OpenAI transcription request")
	transport := flag.StringP("transport", "t", "tcp", "Command transport: tcp or ws")
	wsPort := flag.Int("ws-port", 8080, "Controller HTTP port for the ws transport")
	timeout := flag.Duration("timeout", recognizer.DefaultWindow, "How long to wait for speech to start")
	sendTimeout := flag.Duration("send-timeout", client.DefaultTimeout, "Timeout for connecting to the controller and reading its reply")
	beepFile := flag.String("beep", "", "MP3 cue played before listening")
	audioFile := flag.StringP("file", "f", "", "Transcribe one audio file (wav, mp3, ogg), send its command and exit")
	flag.Parse()

	logger, err := customlog.NewLogrusLogger(*logLevel, *logDir, "voice-control")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		// A second Ctrl+C falls through to the default handler and kills the process.
		<-ctx.Done()
		stop()
	}()

	// Command transport
	var sender voice.Sender
	switch *transport {
	case "tcp":
		s := client.NewTCPSender(*host, *port)
		s.SetTimeout(*sendTimeout)
		logger.Infof("Sending commands to %s", s.Addr())
		sender = s
	case "ws":
		s := client.NewWSSender(*host, *wsPort, logger)
		s.SetTimeout(*sendTimeout)
		defer s.Close()
		logger.Infof("Sending commands to %s", s.URL())
		sender = s
	default:
		logger.Fatalf("Unknown transport %q (expected tcp or ws)", *transport)
	}

	ctrl := voice.NewController(logger, sender, os.Stdout)

	if *debug {
		logger.Infof("Debug mode enabled")
		if err := ctrl.RunDebug(ctx, os.Stdin); err != nil {
			logger.Errorf("Reading stdin: %v", err)
		}
		logger.Infof("Voice control exited")
		return
	}

	// Speech engine
	if err := godotenv.Load(*envFile); err != nil {
		logger.Debugf("No env file loaded from %s: %v", *envFile, err)
	}
	transcriber, err := newTranscriber(engineOptions{
		engine:     *engine,
		model:      *model,
		language:   *language,
		socks:      *socks,
		apiTimeout: *apiTimeout,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize %s engine: %v", *engine, err)
	}
	if c, ok := transcriber.(closer); ok {
		defer c.Close()
	}

	if *audioFile != "" {
		rec := recognizer.New(nil, transcriber, *timeout, logger)
		text, err := rec.FromFile(ctx, *audioFile)
		if err != nil {
			logger.Fatalf("Failed to recognize %s: %v", *audioFile, err)
		}
		logger.Infof("Recognized: %s", text)
		if !ctrl.Handle(ctx, text) {
			os.Exit(1)
		}
		return
	}

	// Audio capture
	var capturer recognizer.Capturer
	if audio.IsWSL() {
		logger.Infof("WSL detected, recording through Windows audio")
		capturer = audio.NewWSLRecorder()
	} else {
		m := mic.NewRecorder()
		if err := m.Init(); err != nil {
			logger.Fatalf("Failed to initialize microphone: %v", err)
		}
		defer m.Close()
		capturer = m
	}

	if *beepFile != "" {
		path := *beepFile
		ctrl.SetCue(func() {
			if err := notify.Beep(path); err != nil {
				logger.Warnf("Cue failed: %v", err)
			}
		})
	}

	if err := ctrl.RunVoice(ctx, recognizer.New(capturer, transcriber, *timeout, logger)); err != nil {
		logger.Errorf("Voice loop stopped: %v", err)
	}
	logger.Infof("Voice control exited")
}

type engineOptions struct {
	engine     string
	model      string
	language   string
	socks      string
	apiTimeout time.Duration
}

func newTranscriber(opt engineOptions, logger customlog.Logger) (recognizer.Transcriber, error) {
	prompt := "Robot arm commands: " + strings.Join(voice.Vocabulary, ", ") + "."
	model, language := opt.model, opt.language

	switch opt.engine {
	case "openai":
		httpClient, err := proxy.NewClient(opt.socks, opt.apiTimeout)
		if err != nil {
			return nil, err
		}
		if opt.socks != "" {
			logger.Debugf("Using SOCKS proxy for the OpenAI API")
		}
		return stt.NewOpenAITranscriber(stt.OpenAIOptions{
			APIKey:   os.Getenv("OPENAI_API_KEY"),
			Model:    model,
			Language: language,
			Prompt:   prompt,
			HTTP:     httpClient,
		})
	case "whisper":
		if model == "" {
			return nil, errors.New("--model must point to a ggml model file")
		}
		start := time.Now()
		t, err := whisper.NewTranscriber(model, whisper.Options{Language: language, InitialPrompt: prompt})
		if err != nil {
			return nil, err
		}
		logger.Infof("Loaded whisper model %s in %s", model, time.Since(start).Round(time.Millisecond))
		return t, nil
	default:
		return nil, fmt.Errorf("unknown engine %q (expected openai or whisper)", opt.engine)
	}
}
