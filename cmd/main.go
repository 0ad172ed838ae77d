package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/adapters/capture"
	"github.com/satriahrh/moodcast/adapters/daydream"
	"github.com/satriahrh/moodcast/adapters/memory"
	"github.com/satriahrh/moodcast/adapters/mongo"
	"github.com/satriahrh/moodcast/adapters/music"
	"github.com/satriahrh/moodcast/adapters/overlay"
	"github.com/satriahrh/moodcast/adapters/stt"
	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
	"github.com/satriahrh/moodcast/internal/api"
	"github.com/satriahrh/moodcast/internal/audio"
	"github.com/satriahrh/moodcast/internal/auth"
	"github.com/satriahrh/moodcast/internal/config"
	"github.com/satriahrh/moodcast/internal/websocket"
	"github.com/satriahrh/moodcast/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Moodcast stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("Moodcast exited")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	table := cfg.Moods

	// Initialize adapters
	speechToText, err := newSpeechToText(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer speechToText.Close()

	source, err := newAudioSource(cfg, logger)
	if err != nil {
		return err
	}

	sessions, closeSessions, err := newSessionRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	var (
		remote *daydream.Client
		stream entities.RemoteStream
	)
	if !cfg.Daydream.Disabled {
		remote, err = daydream.NewClient(daydream.Config{
			APIKey:     cfg.Daydream.APIKey,
			APIBaseURL: cfg.Daydream.APIURL,
			PipelineID: cfg.Daydream.PipelineID,
			Timeout:    cfg.Loop.RemoteTimeout,
		}, logger)
		if err != nil {
			return err
		}
		stream, err = openStream(ctx, remote, cfg, logger)
		if err != nil {
			return err
		}
	}

	session := entities.NewSession(stream)

	// Effects
	overlayEffect := usecase.NewOverlayEffect(
		overlay.NewFileWriter(cfg.Overlay.TextFile, cfg.Overlay.ImageFile, logger),
		cfg.Overlay.ImageDir,
	)
	images := func(mood entities.MoodLabel) string {
		if overlayEffect.ImagePath(mood) == "" {
			return ""
		}
		return "/images/" + mood.String() + ".png"
	}
	hub := websocket.NewHub(session.ID, table.Default(), images, logger)

	handlers := []usecase.EffectHandler{overlayEffect, hub}
	if remote != nil {
		handlers = append(handlers, usecase.NewStyleEffect(remote, stream.ID, logger))
	}

	var player repositories.MusicPlayer
	if !cfg.Music.Disabled {
		execPlayer, err := music.NewExecPlayer(music.Config{
			Dir:     cfg.Music.Dir,
			Command: strings.Fields(cfg.Music.Player),
		}, table.Labels(), logger)
		if err != nil {
			logger.Warn("Music disabled", zap.Error(err))
		} else {
			player = execPlayer
			handlers = append(handlers, usecase.NewMusicEffect(execPlayer))
		}
	}

	dispatcher := usecase.NewEffectDispatcher(table, cfg.Loop.RemoteTimeout, logger, handlers...)
	classifier := usecase.NewMoodClassifier(table)
	queue := audio.NewBlockQueue(cfg.Audio.QueueSize, cfg.Audio.OverflowPolicy)

	loop := usecase.NewControlLoop(usecase.LoopConfig{
		Period:            cfg.Loop.Period,
		TranscribeTimeout: cfg.Loop.TranscribeTimeout,
		SampleRate:        cfg.Audio.SampleRate,
		PrimeEffects:      cfg.Loop.PrimeEffects,
		SkipSilence:       cfg.Loop.SkipSilence,
	}, usecase.LoopDeps{
		Source:     source,
		Queue:      queue,
		Assembler:  audio.NewChunkAssembler(queue, cfg.Audio.ChunkDuration, cfg.Audio.BlockDuration, cfg.Audio.PullTimeout, cfg.Audio.SampleRate),
		STT:        speechToText,
		Classifier: classifier,
		Machine:    usecase.NewMoodStateMachine(table.Default()),
		Dispatcher: dispatcher,
		Player:     player,
		Sessions:   sessions,
		Session:    session,
	}, logger)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, api.Deps{
		Loop:       loop,
		Table:      table,
		Classifier: classifier,
		Sessions:   sessions,
		SessionID:  session.ID,
		Hub:        hub,
		Tokens:     auth.NewTokenIssuer(cfg.JWTSecret, auth.DefaultTokenTTL),
		Images:     cfg.Overlay.ImageDir,
	}, logger)

	port := strconv.Itoa(cfg.Port)
	go func() {
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("Moodcast started",
		zap.String("port", port),
		zap.String("sessionID", session.ID),
		zap.String("streamID", stream.ID),
		zap.String("stt", cfg.STT.Backend),
		zap.Strings("effects", dispatcher.Handlers()))

	loopErr := loop.Run(ctx)

	logger.Info("Server is shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if mem, ok := sessions.(*memory.SessionRepository); ok && cfg.Storage.TimelineFile != "" {
		if err := mem.DumpJSON(cfg.Storage.TimelineFile); err != nil {
			logger.Error("Failed to write timeline", zap.Error(err))
		} else {
			logger.Info("Timeline written", zap.String("path", cfg.Storage.TimelineFile))
		}
	}

	return loopErr
}

func newSpeechToText(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SpeechToText, error) {
	switch cfg.STT.Backend {
	case config.STTGemini:
		return stt.NewGeminiSpeechToText(ctx, stt.GeminiConfig{
			APIKey:   cfg.STT.GeminiAPIKey,
			Model:    cfg.STT.GeminiModel,
			Language: cfg.STT.Language,
		}, logger)
	case config.STTWhisper:
		return stt.NewWhisperSpeechToText(stt.WhisperConfig{
			BaseURL:  cfg.STT.WhisperURL,
			Language: cfg.STT.Language,
			Timeout:  cfg.Loop.TranscribeTimeout,
		}, logger)
	case config.STTMock:
		return stt.NewMockSpeechToText(nil, logger), nil
	default:
		return stt.NewGoogleSpeechToText(ctx, repositories.AudioConfig{
			SampleRate: cfg.Audio.SampleRate,
			Language:   cfg.STT.Language,
		}, logger)
	}
}

// newAudioSource opens the microphone, or a silent generator for the mock
// backend and when explicitly asked for
func newAudioSource(cfg *config.Config, logger *zap.Logger) (repositories.AudioSource, error) {
	captureCfg := capture.Config{
		SampleRate:    cfg.Audio.SampleRate,
		BlockDuration: cfg.Audio.BlockDuration,
	}
	if cfg.Audio.Synthetic || cfg.STT.Backend == config.STTMock {
		return capture.NewSyntheticSource(captureCfg, logger), nil
	}
	return capture.NewPortAudioSource(captureCfg, logger)
}

// newSessionRepository stores the timeline in MongoDB when configured and in
// memory otherwise
func newSessionRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SessionRepository, func(), error) {
	if cfg.Storage.MongoURI == "" {
		return memory.NewSessionRepository(), func() {}, nil
	}

	client, err := mongo.NewClient(ctx, mongo.ClientConfig{
		URI:      cfg.Storage.MongoURI,
		Database: cfg.Storage.MongoDatabase,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	repo := mongo.NewSessionRepository(client.Database, logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("Failed to create session indexes", zap.Error(err))
	}

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(ctx); err != nil {
			logger.Error("Failed to close MongoDB", zap.Error(err))
		}
	}
	return repo, closeFn, nil
}

func openStream(ctx context.Context, remote *daydream.Client, cfg *config.Config, logger *zap.Logger) (entities.RemoteStream, error) {
	if cfg.Daydream.StreamID != "" {
		logger.Info("Reusing remote stream", zap.String("streamID", cfg.Daydream.StreamID))
		return daydream.ExistingStream(cfg.Daydream.StreamID), nil
	}

	createCtx, cancel := context.WithTimeout(ctx, cfg.Loop.RemoteTimeout)
	defer cancel()
	stream, err := remote.CreateSession(createCtx)
	if err != nil {
		return entities.RemoteStream{}, fmt.Errorf("failed to create remote stream: %w", err)
	}
	return stream, nil
}
