package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string          `json:"log_level" yaml:"log_level"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	API       APIConfig       `json:"api" yaml:"api"`
	Ingest    IngestConfig    `json:"ingest" yaml:"ingest"`
	Directory DirectoryConfig `json:"directory" yaml:"directory"`
}

type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type IngestConfig struct {
	Kafka KafkaConfig `json:"kafka" yaml:"kafka"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id"`
}

// DirectoryConfig holds the display sentinels used when the patient
// directory or category table cannot resolve a record.
type DirectoryConfig struct {
	UnknownPatient  string `json:"unknown_patient" yaml:"unknown_patient"`
	DefaultCategory string `json:"default_category" yaml:"default_category"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "file:roundkids.db?_pragma=busy_timeout(5000)",
		},
		API: APIConfig{Enabled: true, Addr: ":8080"},
		Ingest: IngestConfig{
			Kafka: KafkaConfig{Enabled: false},
		},
		Directory: DirectoryConfig{
			UnknownPatient:  "Desconhecido",
			DefaultCategory: "Geral",
		},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" && strings.EqualFold(cfg.Storage.Driver, "sqlite") {
		cfg.Storage.DSN = "file:roundkids.db?_pragma=busy_timeout(5000)"
	}
	if cfg.Directory.UnknownPatient == "" {
		cfg.Directory.UnknownPatient = "Desconhecido"
	}
	if cfg.Directory.DefaultCategory == "" {
		cfg.Directory.DefaultCategory = "Geral"
	}
}

func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("storage.driver must be sqlite or postgres, got %q", cfg.Storage.Driver)
	}
	if strings.HasPrefix(strings.ToLower(cfg.Storage.Driver), "postgres") && cfg.Storage.DSN == "" {
		return errors.New("storage.dsn required for postgres driver")
	}
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Ingest.Kafka.Enabled {
		if len(cfg.Ingest.Kafka.Brokers) == 0 || cfg.Ingest.Kafka.Topic == "" || cfg.Ingest.Kafka.GroupID == "" {
			return errors.New("ingest.kafka requires brokers, topic, group_id")
		}
	}
	return nil
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
