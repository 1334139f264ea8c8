package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/quillnote/internal/observability"
	"github.com/hrygo/quillnote/internal/profile"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "quillnote",
	Short: "Notes with AI summaries, tags and related-note search",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if path := viper.GetString("config"); path != "" {
			viper.SetConfigFile(path)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", path, err)
			}
		}
		slog.SetDefault(newLogger(viper.GetString("log.format"), viper.GetString("log.level")))
		return nil
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("tracing.sample_rate", 1.0)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to a YAML config file")
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver (sqlite or postgres)")
	flags.String("dsn", "", "database source name")
	flags.String("owner", "", "owner id the command acts for")
	flags.String("log-format", "text", `log format, "text" or "json"`)
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	for key, flag := range map[string]string{
		"config":     "config",
		"mode":       "mode",
		"data":       "data",
		"driver":     "driver",
		"dsn":        "dsn",
		"owner":      "owner",
		"log.format": "log-format",
		"log.level":  "log-level",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("quillnote")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		newMigrateCmd(),
		newAddCmd(),
		newBackfillTagsCmd(),
		newSeedCmd(),
		newEmbedCmd(),
		newRelatedCmd(),
	)
}

func newLogger(format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// loadProfile builds the runtime profile from viper and QUILLNOTE_AI_* variables.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version,
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func initTracing(ctx context.Context, p *profile.Profile) (*observability.TracerProvider, error) {
	cfg := observability.DefaultTracingConfig()
	cfg.ServiceVersion = p.Version
	cfg.Environment = "production"
	if p.IsDev() {
		cfg.Environment = "development"
	}
	cfg.OTLPEndpoint = p.TracingEndpoint
	cfg.SampleRate = viper.GetFloat64("tracing.sample_rate")
	return observability.InitTracing(ctx, cfg)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
