package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port        string
	GinMode     string
	DatabaseURL string
	EnableDB    bool

	ModelPath        string
	LabelsPath       string
	ORTLibPath       string
	FeaturesPath     string
	DiseaseTablePath string
	PatientLogPath   string

	KafkaBrokers []string
	KafkaTopic   string

	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"port":               "8080",
	"gin_mode":           "release",
	"enable_db":          false,
	"model_path":         "model/doctor_model.json",
	"labels_path":        "model/labels.json",
	"features_path":      "model/feature_names.json",
	"disease_table_path": "data/medical_data.csv",
	"patient_log_path":   "patient_records.xlsx",
	"kafka_topic":        "aidoctor_events",
	"log_level":          "info",
	"log_format":         "text",
}

// Load reads .env, an optional TOML config file and the environment, in
// increasing order of precedence.
//
// The config file is looked up as CONFIG_NAME (default "config") in ./config
// and the working directory. CONFIG_FILE names an explicit file, which then
// must exist.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	} else {
		name := v.GetString("config_name")
		if name == "" {
			name = "config"
		}
		v.SetConfigName(name)
		v.SetConfigType("toml")
		v.AddConfigPath("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Port:             v.GetString("port"),
		GinMode:          v.GetString("gin_mode"),
		DatabaseURL:      v.GetString("database_url"),
		EnableDB:         v.GetBool("enable_db"),
		ModelPath:        v.GetString("model_path"),
		LabelsPath:       v.GetString("labels_path"),
		ORTLibPath:       v.GetString("onnxruntime_lib"),
		FeaturesPath:     v.GetString("features_path"),
		DiseaseTablePath: v.GetString("disease_table_path"),
		PatientLogPath:   v.GetString("patient_log_path"),
		KafkaBrokers:     splitAndTrim(v.GetString("kafka_brokers")),
		KafkaTopic:       v.GetString("kafka_topic"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
	}

	if cfg.ORTLibPath == "" {
		cfg.ORTLibPath = filepath.Join(filepath.Dir(cfg.ModelPath), "libonnxruntime.so")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port, got %q", c.Port)
	}
	if c.EnableDB && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}

	switch strings.ToLower(filepath.Ext(c.ModelPath)) {
	case ".json":
	case ".onnx":
		if c.LabelsPath == "" {
			return fmt.Errorf("LABELS_PATH is required for ONNX models")
		}
	default:
		return fmt.Errorf("MODEL_PATH must end in .json or .onnx, got %q", c.ModelPath)
	}

	if c.FeaturesPath == "" {
		return fmt.Errorf("FEATURES_PATH must not be empty")
	}
	if c.DiseaseTablePath == "" {
		return fmt.Errorf("DISEASE_TABLE_PATH must not be empty")
	}
	if !c.EnableDB && c.PatientLogPath == "" {
		return fmt.Errorf("PATIENT_LOG_PATH must not be empty")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// KafkaEnabled reports whether audit events should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
