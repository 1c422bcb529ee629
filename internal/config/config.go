package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	APIBaseURL        string
	APIRequestTimeout time.Duration

	// Server
	ServerPort      string
	BaseURL         string
	ShutdownTimeout time.Duration

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel slog.Level
}

// Load は環境変数からConfigを読み込む。
// すべての項目にデフォルト値があるが、URLとして解釈できない値はエラーにする。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.APIBaseURL = strings.TrimRight(getEnvString("API_BASE_URL", "http://localhost:8080/api/knowledgeout"), "/")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:3000")

	var invalid []string
	if !isHTTPURL(cfg.APIBaseURL) {
		invalid = append(invalid, "API_BASE_URL")
	}
	if !isHTTPURL(cfg.BaseURL) {
		invalid = append(invalid, "BASE_URL")
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("environment variables must be absolute http(s) URLs: %v", invalid)
	}

	cfg.APIRequestTimeout = getEnvDuration("API_REQUEST_TIMEOUT", 10*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "3000")
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", strings.HasPrefix(cfg.BaseURL, "https://"))
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	if !isCookieDomain(cfg.CookieDomain) {
		return nil, fmt.Errorf("COOKIE_DOMAIN must be a registrable domain, not a public suffix: %q", cfg.CookieDomain)
	}
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.BaseURL)
	cfg.LogLevel = getEnvLogLevel("LOG_LEVEL", slog.LevelInfo)

	return cfg, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// isCookieDomain は空文字（ホスト限定Cookie）か、公開サフィックスより長いドメインのみを許可する。
// "com" や "co.jp" を指定するとブラウザがCookieを捨てるため起動時に弾く。
func isCookieDomain(domain string) bool {
	if domain == "" {
		return true
	}
	host := strings.ToLower(strings.TrimPrefix(domain, "."))
	if host == "" || strings.ContainsAny(host, ":/ ") {
		return false
	}
	_, err := publicsuffix.EffectiveTLDPlusOne(host)
	return err == nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// getEnvLogLevel は debug / info / warn / error を受け付ける。
func getEnvLogLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return level
}
