package configuration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"photochat/internal/auth"
	"photochat/internal/db"
	"photochat/internal/handler"
	"photochat/internal/hub"
	"photochat/internal/jobs"
	"photochat/internal/logging"
	"photochat/internal/presence"
	"photochat/internal/repo"
	"photochat/internal/service"
)

const connectTimeout = 10 * time.Second

type Container struct {
	ChatHandler handler.ChatHandler
	Hub         *hub.Hub
	Users       repo.UserRepository
	Verifier    auth.TokenVerifier
	Sweeper     *jobs.RetentionSweeper
	Metrics     *prometheus.Registry
	Config      Config
	Logger      *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
	badgerStore *repo.BadgerStore
	online      *presence.OnlineTracker
}

// BuildContainer loads configuration from path and wires every component.
func BuildContainer(path string) (*Container, error) {
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.NewLogger(config.LogLevel)
	if err != nil {
		return nil, err
	}

	return NewContainer(*config, logger)
}

// NewContainer wires the application from an already validated config.
func NewContainer(config Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: config, Logger: logger}

	messages, users, err := c.openStores()
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewJWTVerifier(config.Auth.SecretKey, config.Auth.Algorithm)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	online, err := presence.NewOnlineTracker(config.Chat.PresenceTTL, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.online = online

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := presence.NewRegistry()
	chatService := service.NewChatService(messages, users, registry, online, logger)

	c.ChatHandler = handler.NewChatHandler(chatService, logger)
	c.Hub = hub.NewHub(registry, online, chatService, verifier, logger, hub.Options{
		AllowedOrigins: config.Server.AllowedOrigins,
		Registerer:     metrics,
	})
	c.Users = users
	c.Verifier = verifier
	c.Sweeper = jobs.NewRetentionSweeper(messages, config.RetentionWindow(), config.Chat.SweepInterval, logger, metrics)
	c.Metrics = metrics

	logger.Info("container ready",
		zap.String("store_driver", config.Store.Driver),
		zap.Duration("presence_ttl", online.TTL()),
		zap.Int("retention_days", config.Chat.RetentionDays))
	return c, nil
}

func (c *Container) openStores() (repo.MessageRepository, repo.UserRepository, error) {
	switch c.Config.Store.Driver {
	case DriverBadger:
		store, err := repo.OpenBadgerStore(c.Config.Store.BadgerPath, c.Logger)
		if err != nil {
			return nil, nil, err
		}
		c.badgerStore = store
		return store, store, nil

	case DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		mongoCfg := c.Config.ChatDatabase
		con, err := db.OpenConnection(ctx, mongoCfg.Uri, mongoCfg.Database)
		if err != nil {
			return nil, nil, err
		}
		c.mongoClient = con

		if err := repo.EnsureMessageIndexes(ctx, con, mongoCfg.MessagesCollection); err != nil {
			_ = c.Close()
			return nil, nil, err
		}

		messages := repo.NewMongoMessageRepository(con, mongoCfg.MessagesCollection, mongoCfg.CountersCollection, c.Logger)
		users := repo.NewUserRepository(con, mongoCfg.UsersCollection, c.Logger)
		return messages, users, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", c.Config.Store.Driver)
	}
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	var errs []error

	// Stop the hub first (closes all live connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.online != nil {
		if err := c.online.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close online tracker: %w", err))
		}
	}

	if c.badgerStore != nil {
		if err := c.badgerStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close badger store: %w", err))
		}
	}

	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close MongoDB connection: %w", err))
		}
	}

	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	return errors.Join(errs...)
}
