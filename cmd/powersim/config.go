package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the runtime configuration of the CLI. Flags win over
// POWERSIM_* environment variables, which win over powersim.yaml.
type Config struct {
	DataDir   string `mapstructure:"data_dir" validate:"required"`
	RunID     string `mapstructure:"run_id"`
	DisableDB bool   `mapstructure:"disable_db"`
	Quiet     bool   `mapstructure:"quiet"`

	Addr         string        `mapstructure:"addr" validate:"required"`
	TurnInterval time.Duration `mapstructure:"turn_interval" validate:"gte=0"`
	AllowRemote  bool          `mapstructure:"allow_remote_observer"`

	Tracing TracingConfig `mapstructure:"tracing"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter" validate:"omitempty,oneof=stdout"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// flagKeys maps config keys onto the flag names that may override them.
var flagKeys = map[string]string{
	"data_dir":              "data",
	"run_id":                "run-id",
	"disable_db":            "disable-db",
	"quiet":                 "quiet",
	"addr":                  "addr",
	"turn_interval":         "turn-interval",
	"allow_remote_observer": "allow-remote",
	"tracing.enabled":       "trace",
}

var validate = validator.New()

// loadConfig merges .env, powersim.yaml, POWERSIM_* and the command's flags.
func loadConfig(cmd *cobra.Command, configPath string) (Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("data_dir", "./data")
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("turn_interval", "1s")
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.service_name", "powersim")
	v.SetDefault("tracing.sample_ratio", 1.0)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("powersim")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("POWERSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("powersim.yaml: %w", err)
		}
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
	}
	return nil
}
