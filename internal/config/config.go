package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "CLOZE"
	defaultHTTPAddress   = "0.0.0.0:7860"
	defaultHubBaseURL    = "https://huggingface.co"
	defaultHubRepoType   = "space"
	defaultHubRevision   = "main"
	defaultBoardKey      = "leaderboard.json"
	defaultStoreBackend  = "hub"
	defaultLocalDBPath   = "leaderboard.db"
	defaultLogLevel      = "info"
	defaultTimeoutSecond = 15
)

// StoreBackendHub selects the hosted hub repository as the document store.
const StoreBackendHub = "hub"

// StoreBackendLocal selects the local sqlite-backed document store.
const StoreBackendLocal = "local"

// AppConfig captures runtime configuration for the leaderboard API server.
type AppConfig struct {
	HTTPAddress    string
	HubBaseURL     string
	HubRepoID      string
	HubRepoType    string
	HubRevision    string
	HubToken       string
	BoardKey       string
	StoreBackend   string
	LocalDBPath    string
	StaticDir      string
	LogLevel       string
	RequestTimeout time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	// The hosted runtime injects SPACE_ID and HF_TOKEN without the CLOZE
	// prefix, so bind those names directly.
	_ = configViper.BindEnv("hub.repo_id", "CLOZE_HUB_REPO_ID", "SPACE_ID")
	_ = configViper.BindEnv("hub.token", "CLOZE_HUB_TOKEN", "HF_TOKEN")

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("hub.base_url", defaultHubBaseURL)
	configViper.SetDefault("hub.repo_type", defaultHubRepoType)
	configViper.SetDefault("hub.revision", defaultHubRevision)
	configViper.SetDefault("board.key", defaultBoardKey)
	configViper.SetDefault("store.backend", defaultStoreBackend)
	configViper.SetDefault("store.local_path", defaultLocalDBPath)
	configViper.SetDefault("http.static_dir", "")
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("http.timeout_seconds", defaultTimeoutSecond)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		HubBaseURL:     configViper.GetString("hub.base_url"),
		HubRepoID:      configViper.GetString("hub.repo_id"),
		HubRepoType:    configViper.GetString("hub.repo_type"),
		HubRevision:    configViper.GetString("hub.revision"),
		HubToken:       configViper.GetString("hub.token"),
		BoardKey:       configViper.GetString("board.key"),
		StoreBackend:   strings.ToLower(strings.TrimSpace(configViper.GetString("store.backend"))),
		LocalDBPath:    configViper.GetString("store.local_path"),
		StaticDir:      configViper.GetString("http.static_dir"),
		LogLevel:       configViper.GetString("log.level"),
		RequestTimeout: time.Duration(configViper.GetInt("http.timeout_seconds")) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// HasWriteToken reports whether a hub write credential is configured.
func (c AppConfig) HasWriteToken() bool {
	return strings.TrimSpace(c.HubToken) != ""
}

func (c AppConfig) validate() error {
	switch c.StoreBackend {
	case StoreBackendHub:
		if strings.TrimSpace(c.HubRepoID) == "" {
			return fmt.Errorf("hub.repo_id is required (set CLOZE_HUB_REPO_ID or SPACE_ID)")
		}
	case StoreBackendLocal:
		if strings.TrimSpace(c.LocalDBPath) == "" {
			return fmt.Errorf("store.local_path is required for the local backend")
		}
	default:
		return fmt.Errorf("store.backend must be %q or %q", StoreBackendHub, StoreBackendLocal)
	}
	if strings.TrimSpace(c.BoardKey) == "" {
		return fmt.Errorf("board.key is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("http.timeout_seconds must be positive")
	}
	return nil
}
