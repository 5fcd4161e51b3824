// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// EnvProduction は本番モードを表す APP_ENV の値です。
	EnvProduction = "production"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// 認証設定
	JWTSecret        string `env:"JWT_SECRET"`                        // セッショントークン署名用の秘密鍵（必須）
	LoginMaxAttempts int    `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"` // 0 でログイン試行制限を無効化

	// サーバー設定
	Port   string `env:"PORT" envDefault:"3000"`
	AppEnv string `env:"APP_ENV" envDefault:"development"` // development / production

	// X-Forwarded-For を信頼するプロキシ（カンマ区切り、空なら RemoteAddr のみを使う）
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// CORS設定
	FrontendOrigin string `env:"FRONTEND_ORIGIN" envDefault:"http://localhost:5173"` // カンマ区切り

	// ストア設定
	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"` // memory / postgres / redis
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://127.0.0.1:6379/0"`

	// タスク設定
	EnforceTaskOwnership bool `env:"TASKS_ENFORCE_OWNERSHIP" envDefault:"false"`

	// ログ設定
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load は環境変数から設定を読み込みます。
// .env.local / .env ファイルが存在する場合はそこから読み込みます（既存の環境変数は上書きしません）。
func Load() (*Config, error) {
	loadEnvFiles()

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFiles() {
	names := []string{".env.local", ".env"}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	dirs := []string{cwd}
	if parent := filepath.Dir(cwd); parent != "" && parent != cwd {
		dirs = append(dirs, parent)
	}

	for _, dir := range dirs {
		for _, name := range names {
			// godotenv.Load は既に設定済みの環境変数を上書きしない
			_ = godotenv.Load(filepath.Join(dir, name))
		}
	}
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.LoginMaxAttempts < 0 {
		return fmt.Errorf("LOGIN_MAX_ATTEMPTS must not be negative")
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %q", c.StoreDriver)
	}

	return nil
}

// IsProduction は本番モードで動作しているかを返します。
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// AllowedOrigins は FRONTEND_ORIGIN をカンマで分割した一覧を返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.FrontendOrigin, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
