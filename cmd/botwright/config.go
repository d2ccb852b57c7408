package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"botwright/internal/services"
)

// Config holds all botwright CLI configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath      string `json:"db_path"`
	LogLevel    string `json:"log_level"`
	DownloadDir string `json:"download_dir"`

	SlackWebhookURL string `json:"slack_webhook_url"`
	SlackChannel    string `json:"slack_channel"`

	StorageEndpoint  string `json:"storage_endpoint"`
	StorageRegion    string `json:"storage_region"`
	StorageBucket    string `json:"storage_bucket"`
	StorageAccessKey string `json:"storage_access_key"`
	StorageSecretKey string `json:"storage_secret_key"`

	SFTPHost     string `json:"sftp_host"`
	SFTPPort     int    `json:"sftp_port"`
	SFTPUser     string `json:"sftp_user"`
	SFTPPassword string `json:"sftp_password"`
	SFTPKeyFile  string `json:"sftp_key_file"`
}

func defaultConfig() Config {
	return Config{
		DBPath:   "file:" + filepath.Join(botwrightDir(), "botwright.db"),
		LogLevel: "info",
	}
}

func botwrightDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".botwright"
	}
	return filepath.Join(home, ".botwright")
}

func settingsPath() string {
	return filepath.Join(botwrightDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("BOTWRIGHT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("BOTWRIGHT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BOTWRIGHT_DOWNLOAD_DIR"); v != "" {
		cfg.DownloadDir = v
	}
	if v := os.Getenv("BOTWRIGHT_SLACK_WEBHOOK_URL"); v != "" {
		cfg.SlackWebhookURL = v
	}
	if v := os.Getenv("BOTWRIGHT_SLACK_CHANNEL"); v != "" {
		cfg.SlackChannel = v
	}
	if v := os.Getenv("BOTWRIGHT_STORAGE_ENDPOINT"); v != "" {
		cfg.StorageEndpoint = v
	}
	if v := os.Getenv("BOTWRIGHT_STORAGE_REGION"); v != "" {
		cfg.StorageRegion = v
	}
	if v := os.Getenv("BOTWRIGHT_STORAGE_BUCKET"); v != "" {
		cfg.StorageBucket = v
	}
	if v := os.Getenv("BOTWRIGHT_STORAGE_ACCESS_KEY"); v != "" {
		cfg.StorageAccessKey = v
	}
	if v := os.Getenv("BOTWRIGHT_STORAGE_SECRET_KEY"); v != "" {
		cfg.StorageSecretKey = v
	}
	if v := os.Getenv("BOTWRIGHT_SFTP_HOST"); v != "" {
		cfg.SFTPHost = v
	}
	if v := os.Getenv("BOTWRIGHT_SFTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SFTPPort = n
		}
	}
	if v := os.Getenv("BOTWRIGHT_SFTP_USER"); v != "" {
		cfg.SFTPUser = v
	}
	if v := os.Getenv("BOTWRIGHT_SFTP_PASSWORD"); v != "" {
		cfg.SFTPPassword = v
	}
	if v := os.Getenv("BOTWRIGHT_SFTP_KEY_FILE"); v != "" {
		cfg.SFTPKeyFile = v
	}

	return cfg
}

// buildIntegrations wires the optional external services from config. Each
// integration is only constructed when its config is complete; a partially
// configured one is silently absent, matching auto-detection from env.
func buildIntegrations(cfg Config, logger *slog.Logger) *services.Integrations {
	in := &services.Integrations{}

	if cfg.SlackWebhookURL != "" {
		in.Slack = services.NewSlackNotifier(cfg.SlackWebhookURL, cfg.SlackChannel, logger)
	}

	if cfg.StorageEndpoint != "" && cfg.StorageBucket != "" &&
		cfg.StorageAccessKey != "" && cfg.StorageSecretKey != "" {
		uploader, err := services.NewStorageUploader(services.StorageConfig{
			Endpoint:  cfg.StorageEndpoint,
			Region:    cfg.StorageRegion,
			Bucket:    cfg.StorageBucket,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
		}, logger)
		if err != nil {
			logger.Warn("storage integration disabled", slog.String("error", err.Error()))
		} else {
			in.Storage = uploader
		}
	}

	if cfg.SFTPHost != "" && cfg.SFTPUser != "" {
		transfer, err := services.NewSFTPTransfer(services.TransferConfig{
			Host:     cfg.SFTPHost,
			Port:     cfg.SFTPPort,
			User:     cfg.SFTPUser,
			Password: cfg.SFTPPassword,
			KeyFile:  cfg.SFTPKeyFile,
		}, logger)
		if err != nil {
			logger.Warn("sftp integration disabled", slog.String("error", err.Error()))
		} else {
			in.Transfer = transfer
		}
	}

	return in
}
