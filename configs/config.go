package config

import (
	"os"
	"strconv"
)

type S3 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Mastodon struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type Config struct {
	ServerAddr    string
	PostgresURI   string
	RedisURI      string
	Mastodon      Mastodon
	S3            S3
	UploadDir     string
	Timezone      string
	AccessCode    string
	SecretKey     string
	CookieName    string
	MaxContentLen int
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":5000"),
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "127.0.0.1:6379"),
		Mastodon: Mastodon{
			ClientID:     getEnv("MASTODON_CLIENT_ID", ""),
			ClientSecret: getEnv("MASTODON_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("MASTODON_REDIRECT_URI", ""),
		},
		S3: S3{
			AccountID:  getEnv("S3_ACCOUNT_ID", ""),
			AccessKey:  getEnv("S3_ACCESS_KEY", ""),
			SecretKey:  getEnv("S3_SECRET_KEY", ""),
			BucketName: getEnv("S3_BUCKET_NAME", ""),
			PublicURL:  getEnv("S3_PUBLIC_URL", ""),
		},
		UploadDir:     getEnv("UPLOAD_DIR", "static/uploads"),
		Timezone:      getEnv("TIMEZONE", "UTC"),
		AccessCode:    getEnv("ACCESS_CODE", ""),
		SecretKey:     getEnv("SECRET_KEY", ""),
		CookieName:    getEnv("COOKIE_NAME", "tootsched_session"),
		MaxContentLen: getEnvInt("MAX_CONTENT_LEN", 500),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
