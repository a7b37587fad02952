// Package config resolves relay settings from flags, the environment and an optional .env file.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	KeyMapsAPIKey       = "GOOGLE_MAPS_API_KEY"
	KeyMapsBaseURL      = "MAPS_BASE_URL"
	KeyOllamaHost       = "OLLAMA_HOST"
	KeyOllamaModel      = "OLLAMA_MODEL"
	KeyModelID          = "VIRTUAL_MODEL_ID"
	KeyAddr             = "RELAY_ADDR"
	KeyInferenceTimeout = "INFERENCE_TIMEOUT"
	KeyLogLevel         = "LOG_LEVEL"
	KeyLogFormat        = "LOG_FORMAT"
	KeyLogDir           = "LOG_DIR"
)

// Config is the resolved runtime configuration.
type Config struct {
	MapsAPIKey       string
	MapsBaseURL      string
	OllamaHost       string
	OllamaModel      string
	ModelID          string
	Addr             string
	InferenceTimeout time.Duration
	LogLevel         string
	LogFormat        string
	LogDir           string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyOllamaHost, "http://localhost:11434")
	v.SetDefault(KeyOllamaModel, "llama3.1:8b")
	v.SetDefault(KeyModelID, "ai-maps-recommender")
	v.SetDefault(KeyAddr, ":8000")
	v.SetDefault(KeyInferenceTimeout, "0")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogDir, "")
}

// LoadDotEnv reads .env files into the process environment. Missing files are ignored
// and variables already set win.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// New returns a viper instance reading the relay keys from the environment.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load resolves a Config from v. Flags bound to v take precedence over the environment.
func Load(v *viper.Viper) (Config, error) {
	timeout, err := parseTimeout(v.GetString(KeyInferenceTimeout))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		MapsAPIKey:       strings.TrimSpace(v.GetString(KeyMapsAPIKey)),
		MapsBaseURL:      strings.TrimSpace(v.GetString(KeyMapsBaseURL)),
		OllamaHost:       strings.TrimRight(strings.TrimSpace(v.GetString(KeyOllamaHost)), "/"),
		OllamaModel:      strings.TrimSpace(v.GetString(KeyOllamaModel)),
		ModelID:          strings.TrimSpace(v.GetString(KeyModelID)),
		Addr:             strings.TrimSpace(v.GetString(KeyAddr)),
		InferenceTimeout: timeout,
		LogLevel:         strings.TrimSpace(v.GetString(KeyLogLevel)),
		LogFormat:        strings.TrimSpace(v.GetString(KeyLogFormat)),
		LogDir:           strings.TrimSpace(v.GetString(KeyLogDir)),
	}
	if cfg.OllamaHost == "" {
		return Config{}, fmt.Errorf("%s must not be empty", KeyOllamaHost)
	}
	if cfg.ModelID == "" {
		return Config{}, fmt.Errorf("%s must not be empty", KeyModelID)
	}
	return cfg, nil
}

// parseTimeout accepts a Go duration ("90s") or a bare number of seconds ("90").
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("%s must not be negative", KeyInferenceTimeout)
		}
		return d, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", KeyInferenceTimeout, raw)
	}
	if secs < 0 {
		return 0, fmt.Errorf("%s must not be negative", KeyInferenceTimeout)
	}
	return time.Duration(secs) * time.Second, nil
}
