// Package config loads the gateway's configuration from environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every tunable the gateway reads at startup.
type Config struct {
	Server    ServerConfig
	Audio     AudioConfig
	Knowledge KnowledgeConfig
	Storage   StorageConfig
	Turn      TurnConfig
}

// Load reads the full configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	audioCfg, err := loadAudioConfig()
	if err != nil {
		return nil, err
	}

	knowledgeCfg, err := loadKnowledgeConfig()
	if err != nil {
		return nil, err
	}

	turnCfg, err := loadTurnConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Audio:     audioCfg,
		Knowledge: knowledgeCfg,
		Storage:   loadStorageConfig(),
		Turn:      turnCfg,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	// Accept ":8080" or "127.0.0.1:8080" as-is.
	if strings.Contains(port, ":") {
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AudioConfig points at the external STT/TTS audio service.
type AudioConfig struct {
	BaseURL string
	Timeout time.Duration
}

func loadAudioConfig() (AudioConfig, error) {
	timeout, err := parseOptionalIntEnv("AUDIO_SERVICE_TIMEOUT")
	if err != nil {
		return AudioConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	return AudioConfig{
		BaseURL: getEnvOrDefault("AUDIO_SERVICE_URL", "http://localhost:8001"),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// KnowledgeConfig points at the external RAG service and carries the
// retrieval defaults sent with every query.
type KnowledgeConfig struct {
	BaseURL        string
	TopK           int
	ScoreThreshold float64
	Timeout        time.Duration
}

func loadKnowledgeConfig() (KnowledgeConfig, error) {
	topK := 5
	if override, err := parseOptionalIntEnv("RAG_TOP_K"); err != nil {
		return KnowledgeConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return KnowledgeConfig{}, fmt.Errorf("RAG_TOP_K must be at least 1, got %d", *override)
		}
		topK = *override
	}

	threshold := 0.3
	if override, err := parseOptionalFloatEnv("RAG_SCORE_THRESHOLD"); err != nil {
		return KnowledgeConfig{}, err
	} else if override != nil {
		if *override < 0 || *override > 1 {
			return KnowledgeConfig{}, fmt.Errorf("RAG_SCORE_THRESHOLD must be within [0,1], got %g", *override)
		}
		threshold = *override
	}

	timeout, err := parseOptionalIntEnv("RAG_SERVICE_TIMEOUT")
	if err != nil {
		return KnowledgeConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	return KnowledgeConfig{
		BaseURL:        getEnvOrDefault("RAG_SERVICE_URL", "http://localhost:8000"),
		TopK:           topK,
		ScoreThreshold: threshold,
		Timeout:        time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// StorageConfig locates the local session store.
type StorageConfig struct {
	DataDir string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir: getEnvOrDefault("DATA_DIR", "data"),
	}
}

// TurnConfig carries the voice turn controller's tunables.
type TurnConfig struct {
	Debounce time.Duration
}

func loadTurnConfig() (TurnConfig, error) {
	debounceMs := 500
	if override, err := parseOptionalIntEnv("TURN_DEBOUNCE_MS"); err != nil {
		return TurnConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return TurnConfig{}, fmt.Errorf("TURN_DEBOUNCE_MS must not be negative, got %d", *override)
		}
		debounceMs = *override
	}

	return TurnConfig{Debounce: time.Duration(debounceMs) * time.Millisecond}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
