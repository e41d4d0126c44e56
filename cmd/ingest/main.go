// Command ingest is the Pokedex data ingestion CLI.
//
// Usage:
//
//	pokedex-ingest refresh
//	pokedex-ingest refresh --mode random
//	pokedex-ingest refresh --mode fixed --limit 151
//	pokedex-ingest list --top 10
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/pokedex-data/internal/config"
	"github.com/albapepper/pokedex-data/internal/db"
	"github.com/albapepper/pokedex-data/internal/pokemon"
	"github.com/albapepper/pokedex-data/internal/provider/pokeapi"
	"github.com/albapepper/pokedex-data/internal/seed"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "pokedex-ingest",
		Short: "Pokedex data ingestion CLI",
	}

	root.AddCommand(refreshCmd())
	root.AddCommand(listCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// refresh command
// --------------------------------------------------------------------------

func refreshCmd() *cobra.Command {
	var (
		mode  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch a page from PokeAPI and store new entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				if err := applyRefreshFlags(cfg, mode, limit); err != nil {
					return err
				}

				repo := pokemon.NewRepository(pool.Pool, logger)
				client := pokeapi.NewClient(cfg.PokeAPIBaseURL, cfg.PokeAPITimeout, nil, logger)
				seeder := seed.NewSeeder(client, repo, cfg, nil, logger)

				start := time.Now()
				result, err := seeder.Refresh(ctx, mode)
				if err != nil {
					return err
				}
				logger.Info("Refresh finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", result.Summary())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Page selection (fixed, random); empty = REFRESH_MODE")
	cmd.Flags().IntVar(&limit, "limit", 0, "Override the page size for this run")
	return cmd
}

// --------------------------------------------------------------------------
// list command
// --------------------------------------------------------------------------

func listCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print stored Pokémon, strongest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				all, err := pokemon.NewRepository(pool.Pool, logger).QueryAll(ctx)
				if err != nil {
					return err
				}
				return writeList(cmd.OutOrStdout(), all, top)
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "Only print the N strongest; 0 = all")
	return cmd
}

// applyRefreshFlags validates --mode and applies a positive --limit to both
// page sizes, so the override holds whichever mode runs.
func applyRefreshFlags(cfg *config.Config, mode string, limit int) error {
	if mode != "" && !config.ValidRefreshMode(mode) {
		return fmt.Errorf("--mode must be %q or %q", config.RefreshModeFixed, config.RefreshModeRandom)
	}
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}
	if limit > 0 {
		cfg.RefreshFixedLimit = limit
		cfg.RefreshRandomLimit = limit
	}
	return nil
}

// writeList prints all as an aligned table, keeping only the first top rows
// when top > 0. all is expected strongest first.
func writeList(w io.Writer, all []pokemon.Pokemon, top int) error {
	if top > 0 && top < len(all) {
		all = all[:top]
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tSTRENGTH\tHEIGHT\tWEIGHT")
	for i, p := range all {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", i+1, p.Name, p.StrengthIndex, p.Height, p.Weight)
	}
	return tw.Flush()
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// run handles config loading, DB connection, and context cancellation.
func run(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
