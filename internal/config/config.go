package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	API struct {
		BaseURL        string
		TimeoutSeconds int
	}
	Database struct {
		Path string
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Log struct {
		Level string
	}
}

// APITimeout returns the per-request deadline for backend calls; zero disables it.
func (c Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix("CONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "127.0.0.1:3000")
	v.SetDefault("api.baseurl", "http://localhost:5050")
	v.SetDefault("api.timeoutseconds", 30)
	v.SetDefault("database.path", "data/console.db")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "invoices")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("log.level", "info")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		return Config{}, fmt.Errorf("api base url is required")
	}

	return cfg, nil
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
