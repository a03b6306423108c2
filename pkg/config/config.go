package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/perdasilva/depres/pkg/depspec"
	"github.com/perdasilva/depres/pkg/resolver"
)

// Config is the depres configuration, read from depres.yaml and DEPRES_*
// environment variables.
type Config struct {
	Grammar         string          `mapstructure:"grammar"`
	Catalogs        []string        `mapstructure:"catalogs"`
	InstalledDB     string          `mapstructure:"installed_db"`
	RootFlags       map[string]bool `mapstructure:"root_flags"`
	Masks           []string        `mapstructure:"masks"`
	MaxRestarts     int             `mapstructure:"max_restarts"`
	MaxAnyOfRetries int             `mapstructure:"max_anyof_retries"`
	PreferInstalled bool            `mapstructure:"prefer_installed"`
	CheckPlan       bool            `mapstructure:"check_plan"`
}

// Load reads the configuration. An explicit file must exist; otherwise
// depres.yaml is looked up in the working directory and in
// $HOME/.config/depres, and defaults apply when neither has one.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("grammar", depspec.GrammarPaludis1)
	v.SetDefault("installed_db", "")
	v.SetDefault("max_restarts", resolver.DefaultMaxRestarts)
	v.SetDefault("max_anyof_retries", resolver.DefaultMaxAnyOfRetries)
	v.SetDefault("prefer_installed", true)
	v.SetDefault("check_plan", false)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("depres")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "depres"))
		}
	}

	v.SetEnvPrefix("DEPRES")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// ResolverOptions translates the configuration into resolver options.
func (c *Config) ResolverOptions(logger *zap.Logger) ([]resolver.Option, error) {
	g, err := depspec.LookupGrammar(c.Grammar)
	if err != nil {
		return nil, err
	}
	return []resolver.Option{
		resolver.WithGrammar(g),
		resolver.WithLogger(logger),
		resolver.WithRootFlags(c.RootFlags),
		resolver.WithMaxRestarts(c.MaxRestarts),
		resolver.WithMaxAnyOfRetries(c.MaxAnyOfRetries),
		resolver.WithPreferInstalled(c.PreferInstalled),
		resolver.WithPlanCheck(c.CheckPlan),
	}, nil
}

func validateConfig(cfg *Config) error {
	if _, err := depspec.LookupGrammar(cfg.Grammar); err != nil {
		return fmt.Errorf("grammar: %w", err)
	}
	if cfg.MaxRestarts < 0 {
		return fmt.Errorf("max_restarts must not be negative, got: %d", cfg.MaxRestarts)
	}
	if cfg.MaxAnyOfRetries < 0 {
		return fmt.Errorf("max_anyof_retries must not be negative, got: %d", cfg.MaxAnyOfRetries)
	}
	for flag := range cfg.RootFlags {
		if !depspec.ValidFlag(flag) {
			return fmt.Errorf("root_flags: invalid flag name %q", flag)
		}
	}
	for i, path := range cfg.Catalogs {
		if path == "" {
			return fmt.Errorf("catalogs[%d] must not be empty", i)
		}
	}
	return nil
}
