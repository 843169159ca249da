package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/memory-backend/internal/concentration"
	"github.com/rocketscienceinc/memory-backend/internal/config"
	"github.com/rocketscienceinc/memory-backend/internal/entity"
	"github.com/rocketscienceinc/memory-backend/internal/repository"
	"github.com/rocketscienceinc/memory-backend/internal/repository/storage"
	"github.com/rocketscienceinc/memory-backend/internal/usecase"
	"github.com/rocketscienceinc/memory-backend/transport/rest"
	"github.com/rocketscienceinc/memory-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	settings, err := GameSettings(conf.Game)
	if err != nil {
		return fmt.Errorf("invalid game settings: %w", err)
	}

	if conf.Redis.Host == "" || conf.Redis.Port == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr(), conf.Redis.Password, conf.Redis.DB)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	eventRepo := repository.NewEventRepository(redisStorage.Connection, conf.Game.SnapshotTTL)
	gameManager := usecase.NewGameManager(logger, eventRepo, settings, conf.Game.RevealDelay)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.New(logger, gameManager).Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := websocket.New(logger, eventRepo).Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// GameSettings - converts the game section of the config into session settings.
func GameSettings(conf config.Game) (concentration.Settings, error) {
	palette, err := entity.ParsePalette(conf.Palette)
	if err != nil {
		return concentration.Settings{}, fmt.Errorf("failed to parse palette: %w", err)
	}

	settings := concentration.Settings{
		PairCount: conf.PairCount,
		Columns:   conf.Columns,
		Palette:   palette,
		PlayerOne: conf.PlayerOne,
		PlayerTwo: conf.PlayerTwo,
	}

	// deal once so bad settings fail at startup rather than on the first game
	if _, err = concentration.Create(settings, rand.New(rand.NewSource(0))); err != nil { //nolint: gosec // validation only
		return concentration.Settings{}, fmt.Errorf("failed to deal test board: %w", err)
	}

	return settings, nil
}
