package main

import (
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/d1c-app/d1c-gateway/adapters/events"
	"github.com/d1c-app/d1c-gateway/adapters/store"
	"github.com/d1c-app/d1c-gateway/backend"
	"github.com/d1c-app/d1c-gateway/internal/config"
	"github.com/d1c-app/d1c-gateway/ports"
	"github.com/d1c-app/d1c-gateway/service"
	transport "github.com/d1c-app/d1c-gateway/transport/http"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var (
		nonces   ports.NonceStore
		eventPub ports.EventPublisher
	)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to parse Redis URL")
		}
		redisClient := redis.NewClient(opts)
		nonces = store.NewRedisStore(redisClient)

		if cfg.EventsEnabled {
			publisher, err := redisstream.NewPublisher(
				redisstream.PublisherConfig{Client: redisClient},
				watermill.NewStdLogger(false, false),
			)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create event publisher")
			}
			eventPub = events.NewWatermillPublisher(publisher)
		}
	} else {
		log.Warn().Msg("REDIS_URL not set; using in-memory nonce store")
		nonces = store.NewMemoryStore()
	}

	if eventPub == nil {
		eventPub = events.NewNoopPublisher()
	}

	backendClient := backend.New(cfg.BackendBaseURL, cfg.BackendAPIKey, log)

	authService := service.NewAuthService(
		nonces, eventPub, backendClient,
		cfg.Domain, cfg.Origin, cfg.ChainID(),
		log,
	)

	router, err := transport.SetupRouter(cfg, authService, backendClient, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up router")
	}

	log.Info().Str("addr", cfg.ListenAddr).Str("env", cfg.Environment).Msg("starting d1c gateway")
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
