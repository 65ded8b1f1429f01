package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"gopherai-chat/internal/ai"
	"gopherai-chat/internal/app"
	"gopherai-chat/internal/config"
	"gopherai-chat/internal/pkg/convtrim"
	"gopherai-chat/internal/pkg/logger"
	"gopherai-chat/internal/platform/database"
	rabbitmqClient "gopherai-chat/internal/platform/rabbitmq"
	redisClient "gopherai-chat/internal/platform/redis"
	"gopherai-chat/internal/repository"
	"gopherai-chat/internal/transport/http/handler"
	"gopherai-chat/internal/worker"
)

type App struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	UsageWorker *worker.UsagePersistWorker
	UsageRepo   *repository.UsageRepository
	ChatService *app.ChatService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	a := &App{Config: cfg, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	var publisher app.UsagePublisher
	if cfg.RabbitMQ.URL != "" && a.DB != nil {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.UsageQueue)
		if err != nil {
			return err
		}
		a.UsageRepo = repository.NewUsageRepository(a.DB)
		if err := a.UsageRepo.Migrate(ctx); err != nil {
			return err
		}
		a.UsageWorker = worker.NewUsagePersistWorker(a.MQConn, a.UsageRepo, cfg.RabbitMQ.UsageQueue)
		if err := a.UsageWorker.Start(ctx); err != nil {
			return fmt.Errorf("start usage worker failed: %w", err)
		}
		publisher = rabbitmqClient.NewUsagePublisher(a.MQConn, cfg.RabbitMQ.UsageQueue)
	} else if cfg.RabbitMQ.URL != "" {
		log.Warn().Str("driver", cfg.Storage.Driver).Msg("usage ledger needs a relational store, rabbitmq disabled")
	}

	trimmer, err := newTrimmer(cfg.LLM)
	if err != nil {
		return err
	}

	completer := ai.NewOpenAICompatibleClient(ai.ChatConfig{
		APIType:    cfg.LLM.APIType,
		APIVersion: cfg.LLM.APIVersion,
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		MaxTokens:  cfg.LLM.MaxTokens,
	})
	a.ChatService = app.NewChatService(store, completer, trimmer, publisher, cfg.LLM.Model)

	sessions, err := a.ChatService.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("load sessions failed: %w", err)
	}
	log.Info().
		Str("driver", cfg.Storage.Driver).
		Int("sessions", len(sessions)).
		Bool("usage_ledger", publisher != nil).
		Msg("chat service ready")
	return nil
}

func (a *App) openStore(ctx context.Context) (app.ChatStore, error) {
	cfg := a.Config
	var err error

	switch cfg.Storage.Driver {
	case config.StorageRedis:
		a.Redis, err = redisClient.New(ctx, redisClient.Options{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			ClientName: cfg.App.Name,
		})
		if err != nil {
			return nil, err
		}
		return repository.NewRedisChatRepository(a.Redis, cfg.Redis.KeyPrefix), nil
	case config.StorageMySQL:
		a.DB, err = database.Open(ctx, database.DriverMySQL, cfg.MySQLDSN())
	case config.StoragePostgres:
		a.DB, err = database.Open(ctx, database.DriverPostgres, cfg.Postgres.DSN)
	case config.StorageSQLite:
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("create sqlite dir failed: %w", mkErr)
			}
		}
		a.DB, err = database.Open(ctx, database.DriverSQLite, cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	repo := repository.NewChatRepository(a.DB)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func newTrimmer(cfg config.LLMConfig) (convtrim.Trimmer, error) {
	if cfg.TruncateMode == config.TruncateTokens {
		return convtrim.NewTokens(cfg.Model)
	}
	return convtrim.Chars{}, nil
}

// HealthChecks lists a probe for every backing service in use.
func (a *App) HealthChecks() []handler.DependencyCheck {
	var checks []handler.DependencyCheck
	if a.DB != nil {
		checks = append(checks, handler.DependencyCheck{
			Name: a.Config.Storage.Driver,
			Check: func(ctx context.Context) error {
				sqlDB, err := a.DB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		})
	}
	if a.Redis != nil {
		checks = append(checks, handler.DependencyCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return a.Redis.Ping(ctx).Err()
			},
		})
	}
	if a.MQConn != nil {
		checks = append(checks, handler.DependencyCheck{
			Name: "rabbitmq",
			Check: func(ctx context.Context) error {
				if a.MQConn.IsClosed() {
					return errors.New("connection closed")
				}
				return nil
			},
		})
	}
	return checks
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.UsageWorker != nil {
		a.UsageWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
