package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("CONFIG_ENV", "nonexistent")

	cfg, err := Load()

	req.NoError(err)
	req.Equal("release", cfg.Mode)
	req.Equal(8080, cfg.Port)
	req.NotEmpty(cfg.Secret)
	req.Equal(int64(32768), cfg.ReadLimit)
	req.Equal(54*time.Second, cfg.PingPeriod)
	req.Equal(32, cfg.SendBuffer)
	req.Empty(cfg.RedisAddr)
	req.Equal(int64(1000), cfg.MessageKeep)
	req.Equal(256, cfg.PersistQueue)
	req.Equal(3, cfg.PersistRetries)
	req.Equal(200*time.Millisecond, cfg.PersistBackoff)
	req.Equal(20, cfg.MessageRateLimit)
	req.Equal(10*time.Second, cfg.MessageRateWindow)
}
