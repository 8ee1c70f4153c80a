// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the maezuru CLI.
// It runs OSINT scans through a search-grounded AI collaborator, keeps a
// bounded local history of results, exports dossiers and link graphs, and
// serves the same operations over a local HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/maezuru/internal/events"
	"github.com/pdiddy/maezuru/internal/history"
	"github.com/pdiddy/maezuru/internal/kvstore"
	"github.com/pdiddy/maezuru/internal/scan"
	"github.com/pdiddy/maezuru/internal/secrets"
	"github.com/pdiddy/maezuru/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// log is configured in PersistentPreRunE from --loglevel.
var log = logrus.New()

// rootCmd is the base command for the maezuru CLI.
var rootCmd = &cobra.Command{
	Use:   "maezuru",
	Short: "OSINT radar driven by a search-grounded AI model",
	Long: `maezuru sweeps public sources for a target (username, e-mail, phone,
real name, domain or a media file) through a search-grounded generative AI
model. It returns a narrative report, the structured personal data the model
extracted, and every cited profile classified by platform and scored by how
strongly it matches the query.

Successful scans are kept in a local history of the 50 most recent results,
from which dossiers and link graphs can be exported at any time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := configureLogger(); err != nil {
			return err
		}

		s, err := secrets.Load(".secrets/", log)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.WithField("keys", keys).Debug("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./maezuru.yaml or ~/.config/maezuru/maezuru.yaml)")
	rootCmd.PersistentFlags().String("loglevel", "", "log level: debug, info, warn, error (default info)")
	rootCmd.PersistentFlags().String("history-db", "", "SQLite file backing the scan history")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("loglevel"))
	viper.BindPFlag("history.path", rootCmd.PersistentFlags().Lookup("history-db"))
}

// configDir returns ~/.config/maezuru, or "" when the home directory is unknown.
func configDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "maezuru")
}

func initConfig() {
	// A missing .env file is the common case.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		if expanded, err := homedir.Expand(cfgFile); err == nil {
			cfgFile = expanded
		}
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("maezuru")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if dir := configDir(); dir != "" {
			viper.AddConfigPath(dir)
		}
	}

	viper.SetEnvPrefix("MAEZURU")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// AI backends selectable through ai.backend.
const (
	backendREST  = "rest"
	backendGenAI = "genai"
)

// setDefaults registers every key so AutomaticEnv and Unmarshal see them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.backend", backendREST)
	v.SetDefault("ai.model", scan.DefaultModel)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.endpoint", "")
	v.SetDefault("ai.temperature", scan.DefaultTemperature)
	v.SetDefault("ai.timeout", "0s")
	v.SetDefault("history.path", "")
	v.SetDefault("history.capacity", history.DefaultCapacity)
	v.SetDefault("server.addr", "127.0.0.1:8417")
	v.SetDefault("log_level", "info")
}

// loadConfig decodes the merged config, flags and environment.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.AI.APIKey = secrets.Resolve(cfg.AI.APIKey, loadedSecrets, secrets.GeminiAPIKey, "GEMINI_API_KEY")
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(configDir(), "maezuru.db")
	} else if expanded, err := homedir.Expand(cfg.History.Path); err == nil {
		cfg.History.Path = expanded
	}
	return cfg, nil
}

func configureLogger() error {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	return nil
}

// newScanner builds the Scanner for cfg, publishing to bus.
func newScanner(ctx context.Context, cfg types.Config, bus *events.Bus) (*scan.Scanner, error) {
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("no API key: set ai.api_key, MAEZURU_AI_API_KEY, GEMINI_API_KEY or .secrets/%s", secrets.GeminiAPIKey)
	}

	httpClient := &http.Client{Timeout: cfg.AI.Timeout}
	var backend scan.AIBackend
	switch cfg.AI.Backend {
	case "", backendREST:
		backend = &scan.GeminiBackend{
			APIKey:   cfg.AI.APIKey,
			Model:    cfg.AI.Model,
			Endpoint: cfg.AI.Endpoint,
			Client:   httpClient,
		}
	case backendGenAI:
		b, err := scan.NewGenAIBackend(ctx, scan.GenAIConfig{
			APIKey:     cfg.AI.APIKey,
			Model:      cfg.AI.Model,
			BaseURL:    cfg.AI.Endpoint,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("unknown ai.backend %q: want %q or %q", cfg.AI.Backend, backendREST, backendGenAI)
	}

	return scan.NewScanner(backend,
		scan.WithLogger(log),
		scan.WithEvents(bus),
		scan.WithTemperature(cfg.AI.Temperature),
	), nil
}

// openHistory opens the SQLite-backed history. The returned close func
// releases the database.
func openHistory(ctx context.Context, cfg types.Config) (*history.History, func() error, error) {
	store, err := kvstore.OpenSQLite(cfg.History.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history store: %w", err)
	}
	h, err := history.Open(ctx, store, log, cfg.History.Capacity)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return h, store.Close, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
