package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, ":5000", cfg.ServerAddr)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisURI)
	assert.Equal(t, "static/uploads", cfg.UploadDir)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 500, cfg.MaxContentLen)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":8080")
	t.Setenv("TIMEZONE", "America/New_York")
	t.Setenv("MAX_CONTENT_LEN", "5000")
	t.Setenv("S3_BUCKET_NAME", "toots")

	cfg := LoadConfig()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, 5000, cfg.MaxContentLen)
	assert.Equal(t, "toots", cfg.S3.BucketName)
}

func TestLoadConfigBadIntFallsBack(t *testing.T) {
	t.Setenv("MAX_CONTENT_LEN", "lots")

	cfg := LoadConfig()
	assert.Equal(t, 500, cfg.MaxContentLen)
}
