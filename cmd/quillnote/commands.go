package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/quillnote/internal/observability"
	"github.com/hrygo/quillnote/internal/profile"
	"github.com/hrygo/quillnote/plugin/ai"
	"github.com/hrygo/quillnote/plugin/ai/enrich"
	"github.com/hrygo/quillnote/server/runner/embedding"
	"github.com/hrygo/quillnote/server/runner/enrichment"
	"github.com/hrygo/quillnote/server/service/note"
	"github.com/hrygo/quillnote/store"
	"github.com/hrygo/quillnote/store/db"
)

// app holds what a command needs, built once per invocation.
type app struct {
	profile  *profile.Profile
	store    *store.Store
	enricher *enrich.Service
	tracer   *observability.TracerProvider
}

// newApp opens and migrates the store. With needAI it also builds the
// provider ports and fails when AI is not configured.
func newApp(ctx context.Context, needAI bool) (*app, error) {
	p, err := loadProfile()
	if err != nil {
		return nil, err
	}

	tracer, err := initTracing(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := store.New(driver, p)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &app{profile: p, store: s, tracer: tracer}

	var chat ai.ChatCompleter
	var embedder ai.Embedder
	if needAI {
		if !p.IsAIEnabled() {
			_ = s.Close()
			return nil, errors.New("AI is not configured: set QUILLNOTE_AI_ENABLED=true and a provider key")
		}
		cfg := ai.NewConfigFromProfile(p)
		if err := cfg.Validate(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("invalid AI config: %w", err)
		}
		ports, err := ai.NewPorts(cfg)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		chat, embedder = ports.Chat, ports.Embedder
	}
	a.enricher = enrich.New(chat, embedder, s, enrich.DefaultOptions())

	return a, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.tracer.Shutdown(ctx); err != nil {
		slog.Warn("failed to shut down tracing", "error", err)
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close store", "error", err)
	}
}

func ownerID() (string, error) {
	owner := viper.GetString("owner")
	if owner == "" {
		return "", errors.New("--owner is required")
	}
	return owner, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())
			slog.Info("database ready", "driver", a.profile.Driver, "dsn", a.profile.DSN)
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Create an enriched note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			created, err := note.NewService(a.store, a.enricher).CreateNote(cmd.Context(), owner, title, args[0])
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"id":         created.ID,
				"title":      created.Title,
				"summary":    created.Summary,
				"tags":       created.Tags,
				"embedded":   len(created.Embedding) > 0,
				"created_ts": created.CreatedTs,
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "note title")
	return cmd
}

func newBackfillTagsCmd() *cobra.Command {
	var all bool
	var concurrency int
	cmd := &cobra.Command{
		Use:   "backfill-tags",
		Short: "Generate tags for existing notes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			outcome, err := enrichment.NewBackfiller(a.store, a.enricher,
				enrichment.WithConcurrency(concurrency),
			).BackfillTags(cmd.Context(), owner, !all)
			if err != nil {
				return err
			}
			return printJSON(outcome)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "retag notes that already have tags")
	cmd.Flags().IntVar(&concurrency, "concurrency", enrichment.DefaultConcurrency, "notes processed at once")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var count, concurrency int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create enriched sample notes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			outcome, err := enrichment.NewSeeder(a.store, a.enricher,
				enrichment.WithConcurrency(concurrency),
			).SeedNotes(cmd.Context(), owner, count)
			if err != nil {
				return err
			}
			return printJSON(outcome)
		},
	}
	cmd.Flags().IntVar(&count, "count", enrichment.DefaultSeedCount, "number of notes to create")
	cmd.Flags().IntVar(&concurrency, "concurrency", enrichment.DefaultConcurrency, "notes enriched at once")
	return cmd
}

func newEmbedCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed notes that have no embedding yet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			runner := embedding.NewRunner(a.store, a.enricher)
			if watch {
				runner.Run(cmd.Context())
				return nil
			}
			return printJSON(map[string]int{"embedded": runner.RunOnce(cmd.Context())})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and embed new notes periodically")
	return cmd
}

func newRelatedCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "related <note-id>",
		Short: "List notes similar to a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerID()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			related, err := note.NewService(a.store, a.enricher).GetRelatedNotes(cmd.Context(), owner, args[0], limit)
			if err != nil {
				return err
			}
			return printJSON(related)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum number of related notes")
	return cmd
}
