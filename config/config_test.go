package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, 0, config.RedisDB)
	assert.Equal(t, "price-updates", config.RedisStream)
	assert.Equal(t, "localhost:11211", config.MemcacheAddr)
	assert.Equal(t, time.Hour, config.PollInterval)
	assert.Equal(t, 5*time.Second, config.ItemDelay)
	assert.Equal(t, 8080, config.APIPort)
	assert.NoError(t, config.Validate())

	// Test with environment variables
	t.Setenv("REDIS_ADDR", "redis.example.com:6379")
	t.Setenv("REDIS_DB", "1")
	t.Setenv("MEMCACHE_ADDR", "memcache.example.com:11211")
	t.Setenv("POLLING_INTERVAL", "30m")
	t.Setenv("API_PORT", "9090")

	config, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	assert.Equal(t, 1, config.RedisDB)
	assert.Equal(t, "memcache.example.com:11211", config.MemcacheAddr)
	assert.Equal(t, 30*time.Minute, config.PollInterval)
	assert.Equal(t, 9090, config.APIPort)
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	t.Setenv("POLLING_INTERVAL", "soon")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c, err := LoadConfig()
		require.NoError(t, err)
		return c
	}

	c := base()
	c.PollInterval = 0
	assert.Error(t, c.Validate())

	c = base()
	c.APIPort = 70000
	assert.Error(t, c.Validate())

	c = base()
	c.Environment = "production"
	assert.Error(t, c.Validate(), "production needs discord credentials")

	c.DiscordToken = "token"
	c.DiscordChannelID = "123"
	assert.NoError(t, c.Validate())
	assert.True(t, c.IsProduction())
}
