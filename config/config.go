// Package config reads service settings from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables take precedence over it.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Config holds the settings shared by the service binaries.
type Config struct {
	Debug bool

	StorageConnectionString string
	CardsTable              string
	BoardsTable             string
	BoardCleanupQueue       string

	// Redis is nil when REDIS_CONNECTION_STRING is unset.
	Redis          *redis.Options
	UpdatesChannel string
	CacheTTL       time.Duration
	DeduperTTL     time.Duration

	// AuthTestMode accepts HS256 tokens signed with AuthTestSecret instead
	// of Auth0-issued ones.
	AuthTestMode   bool
	AuthTestSecret string
	Auth0Domain    string
	Auth0Audience  string
	JWKSCacheTTL   time.Duration

	ListenAddr        string
	ValidateBoardRefs bool
	JanitorWorkers    int
}

// Load reads .env, if any, and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	var err error
	c := Config{
		StorageConnectionString: get("STORAGE_CONNECTION_STRING"),
		CardsTable:              orDefault(get("CARDS_TABLE"), "Cards"),
		BoardsTable:             orDefault(get("BOARDS_TABLE"), "Boards"),
		BoardCleanupQueue:       orDefault(get("BOARD_CLEANUP_QUEUE"), "board-cleanup"),
		UpdatesChannel:          orDefault(get("UPDATES_CHANNEL"), "card-updates"),
		AuthTestMode:            get("AUTH0_TEST_MODE") == "1",
		AuthTestSecret:          get("TEST_JWT_SECRET"),
		Auth0Domain:             get("AUTH0_DOMAIN"),
		Auth0Audience:           get("AUTH0_AUDIENCE"),
		ListenAddr:              ":" + orDefault(get("LISTEN_PORT"), "8080"),
	}
	if c.StorageConnectionString == "" {
		return Config{}, errors.New("missing STORAGE_CONNECTION_STRING")
	}
	if c.Debug, err = envBool(get, "DEBUG", false); err != nil {
		return Config{}, err
	}
	if c.ValidateBoardRefs, err = envBool(get, "VALIDATE_BOARD_REFS", false); err != nil {
		return Config{}, err
	}
	if c.CacheTTL, err = envDuration(get, "CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if c.DeduperTTL, err = envDuration(get, "DEDUPER_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if c.DeduperTTL <= 0 {
		return Config{}, errors.New("invalid DEDUPER_TTL: must be greater than zero")
	}
	if c.JWKSCacheTTL, err = envDuration(get, "JWKS_CACHE_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if c.AuthTestMode && c.AuthTestSecret == "" {
		return Config{}, errors.New("TEST_JWT_SECRET must be set when AUTH0_TEST_MODE=1")
	}
	if c.JanitorWorkers, err = envInt(get, "JANITOR_WORKERS", 4); err != nil {
		return Config{}, err
	}
	if c.JanitorWorkers <= 0 {
		return Config{}, errors.New("invalid JANITOR_WORKERS: must be greater than zero")
	}
	if port := strings.TrimPrefix(c.ListenAddr, ":"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return Config{}, fmt.Errorf("invalid LISTEN_PORT: %w", err)
		}
	}
	if v := get("REDIS_CONNECTION_STRING"); v != "" {
		if c.Redis, err = ParseRedisConnectionString(v); err != nil {
			return Config{}, err
		}
	}
	return c, nil
}

// ApplyLogging sets the logrus level for the process.
func (c Config) ApplyLogging() {
	if c.Debug {
		log.SetLevel(log.DebugLevel)
	}
}

// ParseRedisConnectionString accepts redis:// URLs and the Azure form
// "host:port,password=...,ssl=True".
func ParseRedisConnectionString(s string) (*redis.Options, error) {
	if strings.Contains(s, "://") {
		return redis.ParseURL(s)
	}
	parts := strings.Split(s, ",")
	if parts[0] == "" {
		return nil, errors.New("invalid REDIS_CONNECTION_STRING: missing address")
	}
	opts := &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func envBool(get func(string) string, key string, def bool) (bool, error) {
	v := get(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func envInt(get func(string) string, key string, def int) (int, error) {
	v := get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envDuration(get func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := get(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
