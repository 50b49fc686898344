package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/graph"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/linkage"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/similarity"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// app holds the process-wide dependencies. Optional ones stay nil when disabled.
type app struct {
	cfg     *config.Config
	logger  ectologger.Logger
	zap     *zap.Logger
	startup *startup.Startup

	sqlDB    *sqlx.DB
	store    *repositories.Store
	redis    *redis.Client
	producer *kafka.Producer
	graph    *graph.Client
	service  *linkage.Service
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, zapLogger := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Pretty:     cfg.PrettyLogs,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogFileMaxSizeMB,
		MaxBackups: cfg.LogFileMaxBackups,
		MaxAgeDays: cfg.LogFileMaxAgeDays,
	})
	return &app{
		cfg:     cfg,
		logger:  logger,
		zap:     zapLogger,
		startup: startup.New(logger, cfg.StartupMaxAttempts),
	}, nil
}

// addDependencies registers postgres and every enabled backing service.
func (a *app) addDependencies(migrate bool) {
	a.addPostgres(migrate)
	a.addOptional()
}

func (a *app) addPostgres(migrate bool) {
	cfg := a.cfg
	a.startup.Add(startup.Func{
		ID: "postgres",
		OnStart: func(ctx context.Context) error {
			db, err := database.Connect(ctx, database.ConnectionConfig{
				Host:            cfg.DatabaseHost,
				Port:            cfg.DatabasePort,
				User:            cfg.DatabaseUserName,
				Password:        cfg.DatabasePassword,
				Name:            cfg.DatabaseName,
				SSLMode:         cfg.DatabaseSSLMode,
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			})
			if err != nil {
				return err
			}
			a.sqlDB = db
			a.store = repositories.NewStore(database.NewDatabaseInstance(db, a.logger), a.logger)
			return nil
		},
		OnStop: func(context.Context) error { return a.sqlDB.Close() },
	})

	if migrate {
		a.startup.Add(startup.Func{
			ID:       "migrations",
			Requires: []string{"postgres"},
			OnStart:  func(context.Context) error { return a.migrate() },
		})
	}
}

func (a *app) addOptional() {
	cfg := a.cfg

	if cfg.TracingEnabled {
		var shutdown func(context.Context) error
		a.startup.Add(startup.Func{
			ID: "tracing",
			OnStart: func(context.Context) error {
				shutdown = tracing.Setup(cfg.AppName, a.logger)
				return nil
			},
			OnStop: func(ctx context.Context) error { return shutdown(ctx) },
		})
	}

	if cfg.RedisEnabled {
		a.startup.Add(startup.Func{
			ID: "redis",
			OnStart: func(ctx context.Context) error {
				client, err := redis.NewClient(ctx, redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, a.logger)
				if err != nil {
					return err
				}
				a.redis = client
				return nil
			},
			OnStop: func(context.Context) error { return a.redis.Close() },
		})
	}

	if cfg.KafkaEnabled {
		a.startup.Add(startup.Func{
			ID: "kafka",
			OnStart: func(context.Context) error {
				a.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:         cfg.KafkaBrokers,
					Topic:           cfg.KafkaTopic,
					BatchSize:       cfg.KafkaBatchSize,
					BatchTimeout:    time.Duration(cfg.KafkaBatchTimeoutMS) * time.Millisecond,
					RequiredAcks:    cfg.KafkaRequiredAcks,
					Compression:     cfg.KafkaCompression,
					BreakerFailures: uint32(cfg.KafkaBreakerFailures),
					BreakerTimeout:  cfg.KafkaBreakerTimeout,
				}, a.logger)
				return nil
			},
			OnStop: func(context.Context) error { return a.producer.Close() },
		})
	}

	if cfg.GraphEnabled {
		a.startup.Add(startup.Func{
			ID: "graph",
			OnStart: func(ctx context.Context) error {
				client, err := graph.NewClient(graph.Config{
					Host:     cfg.GraphHost,
					Port:     cfg.GraphPort,
					Username: cfg.GraphUser,
					Password: cfg.GraphPassword,
				}, a.logger)
				if err != nil {
					return err
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					_ = client.Close(ctx)
					return err
				}
				a.graph = client
				return nil
			},
			OnStop: func(ctx context.Context) error { return a.graph.Close(ctx) },
		})
	}
}

func (a *app) migrate() error {
	svc := database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		Version:             uint(a.cfg.DatabaseMigrationVersion),
		Force:               a.cfg.DatabaseMigrationForce,
		AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
	})
	return svc.MigratePostgres(a.sqlDB, a.cfg.DatabaseName)
}

// buildService assembles the clean pass service once dependencies are up.
func (a *app) buildService() {
	var observers []linkage.ClusterObserver
	if a.producer != nil {
		observers = append(observers, events.NewEmitter(a.producer, a.logger))
	}
	if a.graph != nil {
		observers = append(observers, graph.NewProjector(a.graph, a.logger))
	}

	orchestrator := linkage.NewOrchestrator(a.logger,
		linkage.WithScorer(similarity.NewScorer(similarity.WithStreetForm(similarity.StreetForm(a.cfg.CleanStreetForm)))),
		linkage.WithBlockWorkers(a.cfg.CleanBlockWorkers),
		linkage.WithObservers(observers...),
	)

	var opts []linkage.ServiceOption
	if a.redis != nil {
		locker := redis.NewLocker(a.redis, a.cfg.RedisLockPrefix)
		opts = append(opts, linkage.WithPassLock(locker, a.cfg.CleanLockTTL, redis.ErrLockNotAcquired))
	}
	a.service = linkage.NewService(orchestrator, a.store, opts...)
}

func (a *app) start(ctx context.Context, migrate bool) error {
	a.addDependencies(migrate)
	if err := a.startup.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dependencies: %w", err)
	}
	a.buildService()
	return nil
}

func (a *app) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.startup.Stop(ctx); err != nil {
		a.logger.WithError(err).Error("Failed to stop dependencies")
	}
	_ = a.zap.Sync()
}
