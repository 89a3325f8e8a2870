// Package app wires configured clients into the notifier and owns their
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"

	gds "cloud.google.com/go/datastore"
	firebase "firebase.google.com/go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/api/option"

	"github.com/jwalitptl/emergency-notifier/internal/config"
	"github.com/jwalitptl/emergency-notifier/internal/identity"
	"github.com/jwalitptl/emergency-notifier/internal/push"
	"github.com/jwalitptl/emergency-notifier/internal/repository"
	dsrepo "github.com/jwalitptl/emergency-notifier/internal/repository/datastore"
	"github.com/jwalitptl/emergency-notifier/internal/repository/memory"
	"github.com/jwalitptl/emergency-notifier/internal/repository/postgres"
	"github.com/jwalitptl/emergency-notifier/internal/service/notification"
	"github.com/jwalitptl/emergency-notifier/pkg/circuitbreaker"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
	"github.com/jwalitptl/emergency-notifier/pkg/messaging"
	natsbroker "github.com/jwalitptl/emergency-notifier/pkg/messaging/nats"
	redisbroker "github.com/jwalitptl/emergency-notifier/pkg/messaging/redis"
	"github.com/jwalitptl/emergency-notifier/pkg/metrics"
	"github.com/jwalitptl/emergency-notifier/pkg/validator"
)

const metricsNamespace = "notifier"

// Container holds every long-lived client. Clients are created once at
// startup and shared by all handler invocations.
type Container struct {
	Config    *config.Config
	Logger    *logger.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Validator validator.Validator
	Users      repository.UserRepository
	Identities identity.Directory
	Bus        *messaging.EventBus
	Service    *notification.Service

	fbApp   *firebase.App
	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// New builds the container. On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config:    cfg,
		Logger:    log,
		Registry:  prometheus.NewRegistry(),
		Validator: validator.New(),
	}
	ready := false
	defer func() {
		if !ready {
			_ = c.Shutdown()
		}
	}()

	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.New(metricsNamespace, c.Registry)

	users, err := c.newRoster(ctx)
	if err != nil {
		return nil, err
	}
	c.Users = users
	c.onShutdown("roster", c.Users.Close)

	broker, err := c.newBroker(ctx)
	if err != nil {
		return nil, err
	}
	c.Bus = messaging.NewEventBus(broker, cfg.Bus.ChannelPrefix, log)
	c.onShutdown("bus", c.Bus.Close)

	pushClient, err := c.newPush(ctx)
	if err != nil {
		return nil, err
	}
	c.Identities, err = c.newIdentities(ctx)
	if err != nil {
		return nil, err
	}

	c.Service = notification.NewService(notification.Deps{
		Users:      c.Users,
		Identities: c.Identities,
		Push:       pushClient,
		Breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "push",
			MaxFailures: cfg.Push.BreakerMaxFailures,
			Timeout:     cfg.Push.BreakerTimeout,
		}),
		Dispatch: notification.DispatcherConfig{
			BatchSize:            cfg.Push.BatchSize,
			MaxConcurrentBatches: cfg.Push.MaxConcurrentBatches,
			BatchesPerSecond:     cfg.Push.BatchesPerSecond,
			RateBurst:            cfg.Push.RateBurst,
		},
		Validator: c.Validator,
		Logger:    log,
		Metrics:   c.Metrics,
	})
	c.Service.Register(c.Bus)

	ready = true
	return c, nil
}

func (c *Container) onShutdown(name string, fn func() error) {
	c.closers = append(c.closers, closer{name: name, fn: fn})
}

// Shutdown closes clients in reverse creation order.
func (c *Container) Shutdown() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.fn(); err != nil {
			c.Logger.Error(err, "Failed to close client", "client", cl.name)
			errs = append(errs, fmt.Errorf("close %s: %w", cl.name, err))
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) newRoster(ctx context.Context) (repository.UserRepository, error) {
	cfg := c.Config
	switch cfg.Roster.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Name:            cfg.Database.Name,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.EnsureSchema(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		c.Logger.Info("Roster store ready", "driver", "postgres", "host", cfg.Database.Host)
		return postgres.NewUserRepository(postgres.NewBaseRepository(db)), nil

	case "datastore":
		client, err := gds.NewClient(ctx, cfg.Datastore.ProjectID, clientOptions(cfg.Datastore.CredentialsFile)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create datastore client: %w", err)
		}
		c.Logger.Info("Roster store ready", "driver", "datastore", "project_id", cfg.Datastore.ProjectID)
		return dsrepo.NewUserRepository(client), nil

	default:
		c.Logger.Warn("Using in-memory roster store")
		return memory.NewUserRepository(), nil
	}
}

func (c *Container) newBroker(ctx context.Context) (messaging.Broker, error) {
	cfg := c.Config
	switch cfg.Bus.Driver {
	case "redis":
		return redisbroker.NewRedisBroker(ctx, redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, c.Logger)
	case "nats":
		return natsbroker.NewNatsBroker(natsbroker.Config{
			URL:  cfg.NATS.URL,
			Name: cfg.NATS.Name,
		}, c.Logger)
	default:
		c.Logger.Warn("Using in-memory event bus")
		return messaging.NewMemoryBroker(), nil
	}
}

// firebaseApp returns the Firebase app shared by the push and identity
// clients, creating it on first use.
func (c *Container) firebaseApp(ctx context.Context) (*firebase.App, error) {
	if c.fbApp != nil {
		return c.fbApp, nil
	}
	cfg := c.Config.Push
	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOptions(cfg.CredentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	c.fbApp = fbApp
	return fbApp, nil
}

// newPush builds the push client. The log driver never touches the network.
func (c *Container) newPush(ctx context.Context) (push.Client, error) {
	if c.Config.Push.Driver != "fcm" {
		c.Logger.Warn("Using log push driver; notifications are not delivered")
		return push.NewLogClient(c.Logger), nil
	}

	fbApp, err := c.firebaseApp(ctx)
	if err != nil {
		return nil, err
	}
	msgClient, err := fbApp.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	c.Logger.Info("Push delivery ready", "driver", "fcm", "project_id", c.Config.Push.ProjectID)
	return push.NewFCMClient(msgClient), nil
}

// newIdentities builds the auth identity directory used on user deletion.
func (c *Container) newIdentities(ctx context.Context) (identity.Directory, error) {
	if c.Config.Identity.Driver != "firebase" {
		c.Logger.Warn("Using in-memory identity directory; auth identities of deleted users are NOT removed",
			"roster_driver", c.Config.Roster.Driver)
		return identity.NewMemoryDirectory(), nil
	}

	fbApp, err := c.firebaseApp(ctx)
	if err != nil {
		return nil, err
	}
	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}
	c.Logger.Info("Identity directory ready", "driver", "firebase", "project_id", c.Config.Push.ProjectID)
	return identity.NewFirebaseDirectory(authClient), nil
}

func clientOptions(credentialsFile string) []option.ClientOption {
	if credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
}
