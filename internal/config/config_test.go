package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Roster.Driver)
	assert.Equal(t, "memory", cfg.Bus.Driver)
	assert.Equal(t, "log", cfg.Push.Driver)
	assert.Equal(t, 500, cfg.Push.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Push.BreakerTimeout)
	assert.Equal(t, "events.", cfg.Bus.ChannelPrefix)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("NOTIFIER_PUSH_DRIVER", "FCM")
	t.Setenv("NOTIFIER_PUSH_BATCH_SIZE", "250")
	t.Setenv("NOTIFIER_PUSH_BREAKER_TIMEOUT", "1m")
	t.Setenv("NOTIFIER_ROSTER_DRIVER", "postgres")
	t.Setenv("NOTIFIER_DATABASE_HOST", "db.internal")
	t.Setenv("NOTIFIER_NATS_URL", "nats://bus:4222")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "fcm", cfg.Push.Driver)
	assert.Equal(t, 250, cfg.Push.BatchSize)
	assert.Equal(t, time.Minute, cfg.Push.BreakerTimeout)
	assert.Equal(t, "postgres", cfg.Roster.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "nats://bus:4222", cfg.NATS.URL)
}

func TestFileValues(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(`
bus:
  driver: redis
  channel_prefix: "prod."
push:
  max_concurrent_batches: 4
  batches_per_second: 2.5
`)))

	cfg, err := decode(v)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Bus.Driver)
	assert.Equal(t, "prod.", cfg.Bus.ChannelPrefix)
	assert.Equal(t, 4, cfg.Push.MaxConcurrentBatches)
	assert.InDelta(t, 2.5, cfg.Push.BatchesPerSecond, 0.001)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("NOTIFIER_BUS_DRIVER", "kafka")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("NOTIFIER_BUS_DRIVER", "memory")
	t.Setenv("NOTIFIER_PUSH_BATCH_SIZE", "501")
	_, err = Load()
	assert.Error(t, err)
}

func TestIdentityDriver(t *testing.T) {
	t.Run("follows log push driver", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "memory", cfg.Identity.Driver)
	})

	t.Run("follows fcm push driver", func(t *testing.T) {
		t.Setenv("NOTIFIER_PUSH_DRIVER", "fcm")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "firebase", cfg.Identity.Driver)
	})

	t.Run("set independently of push", func(t *testing.T) {
		t.Setenv("NOTIFIER_PUSH_DRIVER", "log")
		t.Setenv("NOTIFIER_IDENTITY_DRIVER", "Firebase")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "log", cfg.Push.Driver)
		assert.Equal(t, "firebase", cfg.Identity.Driver)
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		t.Setenv("NOTIFIER_IDENTITY_DRIVER", "ldap")
		_, err := Load()
		assert.Error(t, err)
	})
}
