package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestMustLoad(t *testing.T) {
	t.Run("Defaults fill missing values", func(t *testing.T) {
		path := writeConfig(t, "log-level: debug\n")

		conf := MustLoad(path)

		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "9090", conf.HTTPPort)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, 3, conf.Game.AIBoardSize)
		assert.Equal(t, 24*time.Hour, conf.Game.SessionTTL)
		assert.Equal(t, 400*time.Millisecond, conf.Game.ThinkDelayMin)
		assert.Equal(t, 700*time.Millisecond, conf.Game.ThinkDelayMax)
	})

	t.Run("Game section", func(t *testing.T) {
		path := writeConfig(t, `
game:
  ai-board-size: 4
  max-board-size: 6
  session-ttl: 1h
  think-delay-min: 10ms
  think-delay-max: 20ms
`)

		conf := MustLoad(path)

		assert.Equal(t, 4, conf.Game.AIBoardSize)
		assert.Equal(t, 3, conf.Game.MinBoardSize)
		assert.Equal(t, 6, conf.Game.MaxBoardSize)
		assert.Equal(t, time.Hour, conf.Game.SessionTTL)
		assert.Equal(t, 10*time.Millisecond, conf.Game.ThinkDelayMin)
		assert.Equal(t, 20*time.Millisecond, conf.Game.ThinkDelayMax)
	})

	t.Run("Missing file panics", func(t *testing.T) {
		assert.Panics(t, func() {
			MustLoad(filepath.Join(t.TempDir(), "absent.yml"))
		})
	})
}
