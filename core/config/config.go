package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"course-importer/core/database"
	"course-importer/core/logger"
	"course-importer/core/progress"
	"course-importer/core/server"
	"course-importer/core/storage"
	"course-importer/feature/imports"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio)
	// used to fetch s3:// documents and archive imported ones.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Progress holds configuration for the import progress store.
	Progress progress.Config `mapstructure:"progress"`
	// Importer holds configuration for the import service.
	Importer imports.Config `mapstructure:"importer"`
}

// LoadConfig loads configuration from defaults, an optional config.yaml,
// an optional .env file and the environment, in increasing precedence.
func LoadConfig(path string) (*Config, error) {
	envPath := filepath.Join(path, ".env")

	// A missing .env is normal outside development.
	_ = godotenv.Overload(envPath)

	v := viper.New()
	bindValues(v, Config{}, "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// DATABASE_DRIVER -> database.driver
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &config, nil
}

// bindValues registers a default for every tagged leaf field of t, keyed by
// the dotted mapstructure path. Empty defaults are registered too so that
// AutomaticEnv can see the key.
func bindValues(v *viper.Viper, iface any, prefix string) {
	bindType(v, reflect.TypeOf(iface), prefix)
}

func bindType(v *viper.Viper, t reflect.Type, prefix string) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindType(v, field.Type, key)
			continue
		}
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
