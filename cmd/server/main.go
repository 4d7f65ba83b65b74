package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mensatt/notifier/internal/adapters/eventbus"
	"github.com/mensatt/notifier/internal/adapters/gql"
	"github.com/mensatt/notifier/internal/adapters/imageservice"
	"github.com/mensatt/notifier/internal/adapters/telegram"
	"github.com/mensatt/notifier/internal/bot/moderator"
	"github.com/mensatt/notifier/internal/core/domain"
	"github.com/mensatt/notifier/internal/shared/config"
	"github.com/mensatt/notifier/internal/shared/logger"
)

// reviewBufferSize is deliberately small: a full channel blocks the
// subscription listener instead of dropping events.
const reviewBufferSize = 8

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	isDevMode := cfg.AppEnv == "dev"
	baseLogger := logger.New(isDevMode)
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Str("bot_mode", cfg.Bot.Mode).
		Msg("Configuration loaded")

	// 3. Root context, cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. Backend and image service clients
	gqlClient := gql.NewClient(cfg.GraphQL, cfg.Mensatt, &baseLogger)
	imageClient := imageservice.New(cfg.Image, &baseLogger)

	// 5. Telegram API and adapters
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}
	api.Debug = isDevMode
	baseLogger.Info().Str("username", api.Self.UserName).Msg("Bot API connected")

	botClient := telegram.NewClient(api, &baseLogger)
	bus := eventbus.NewInMemoryEventBus(cfg.Bot.WorkerPoolSize, &baseLogger)

	// 6. Moderation router, handlers and notifier
	router := moderator.NewRouter(cfg.Bot.ReviewChannelID, botClient, bus, &baseLogger)
	notifier := moderator.NewNotifier(cfg, botClient, imageClient, &baseLogger)
	router.RegisterCallbackHandler(moderator.NewModerationHandler(gqlClient, imageClient, botClient, &baseLogger))
	router.RegisterCommandHandler(moderator.NewPendingHandler(gqlClient, notifier, &baseLogger))

	if err := botClient.SetMenuCommands(ctx); err != nil {
		baseLogger.Warn().Err(err).Msg("Failed to set menu commands (continuing anyway)")
	}

	// 7. Review subscription listener
	reviews := make(chan domain.Review, reviewBufferSize)
	listener := gql.NewListener(cfg.GraphQL, reviews, &baseLogger)

	server := telegram.NewBotServer(api, &cfg.Bot, bus, &baseLogger)

	baseLogger.Info().Msg("Starting up notifier service...")

	go notifier.Run(ctx, reviews)

	errCh := make(chan error, 2)
	go func() {
		// The listener retries forever; it only returns on cancellation
		// or something unrecoverable. A silent stop would mean no more
		// events, so anything else is fatal.
		errCh <- listener.Run(ctx)
	}()
	go func() {
		errCh <- server.Start(ctx)
	}()

	baseLogger.Info().Msg("Notifier service started!")

	err = <-errCh
	if err != nil && !errors.Is(err, context.Canceled) {
		baseLogger.Fatal().Err(err).Msg("Background task failed")
	}
	baseLogger.Info().Msg("Shutting down")
}
