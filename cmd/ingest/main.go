// Command ingest builds the corpus snapshot from a directory of per-song
// metadata documents, optionally filling missing similar-artist lists from
// Last.fm.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/llehouerou/songrec/internal/catalog"
	"github.com/llehouerou/songrec/internal/config"
	"github.com/llehouerou/songrec/internal/enrich"
	"github.com/llehouerou/songrec/internal/errmsg"
	"github.com/llehouerou/songrec/internal/ingest"
	"github.com/llehouerou/songrec/internal/lastfm"
	"github.com/llehouerou/songrec/internal/logging"
	"github.com/llehouerou/songrec/internal/snapshot"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

type options struct {
	configPath   string
	snapshotPath string
	enrich       bool
	workers      int
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "ingest [flags] <dir>",
		Short:         "Build the corpus snapshot from a directory of song metadata",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (TOML), loaded after the default locations")
	cmd.Flags().StringVar(&opts.snapshotPath, "snapshot", "", "snapshot to write (default from config or XDG data dir)")
	cmd.Flags().BoolVar(&opts.enrich, "enrich", false, "fill empty similar-artist lists from Last.fm")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "parallel decoders (default from config)")
	return cmd
}

func run(cmd *cobra.Command, opts options, dir string) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return errmsg.Wrap(errmsg.OpConfigLoad, err)
	}

	logCfg := cfg.GetLogConfig()
	log := logging.New(logging.Config{Level: logCfg.Level, Format: logCfg.Format, Output: stderr})

	if opts.enrich && !cfg.HasLastfmConfig() {
		fmt.Fprintln(stderr, "Set [lastfm] api_key and api_secret, or SONGREC_LASTFM_API_KEY and SONGREC_LASTFM_API_SECRET.")
		return errmsg.Wrap(errmsg.OpLastfmSetup, lastfm.ErrNoCredentials)
	}

	path := opts.snapshotPath
	if path == "" {
		path = cfg.Snapshot.Path
	}
	if path == "" {
		if path, err = snapshot.DefaultPath(); err != nil {
			return errmsg.Wrap(errmsg.OpSnapshotOpen, err)
		}
	}

	ingestCfg := cfg.GetIngestConfig()
	if opts.workers > 0 {
		ingestCfg.Workers = opts.workers
	}

	res, err := runIngest(ctx, dir, ingestCfg, log)
	if err != nil {
		return errmsg.WrapWith(errmsg.OpIngest, dir, err)
	}

	store, err := snapshot.Open(ctx, path)
	if err != nil {
		return errmsg.WrapWith(errmsg.OpSnapshotOpen, path, err)
	}
	defer store.Close()

	artists := res.Artists
	var enriched *enrich.Result
	if opts.enrich {
		artists, enriched, err = runEnrich(ctx, store, artists, cfg.GetLastfmConfig(), log)
		if err != nil {
			return errmsg.Wrap(errmsg.OpEnrich, err)
		}
	}

	if err := store.Save(ctx, res.Songs, artists); err != nil {
		return errmsg.WrapWith(errmsg.OpSnapshotSave, path, err)
	}

	printSummary(stdout, path, res.Stats, enriched)
	return nil
}

func runIngest(ctx context.Context, dir string, cfg config.IngestConfig, log zerolog.Logger) (*ingest.Result, error) {
	progress := make(chan ingest.Progress)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for p := range progress {
			log.Debug().Str("phase", p.Phase).Int("current", p.Current).Int("total", p.Total).Msg("ingest progress")
		}
	}()

	in := ingest.New(ingest.Options{Workers: cfg.Workers, Extension: cfg.Extension}, log)
	res, err := in.Run(ctx, dir, progress)
	<-drained
	return res, err
}

func runEnrich(
	ctx context.Context,
	store *snapshot.Store,
	artists []catalog.Artist,
	cfg config.LastfmConfig,
	log zerolog.Logger,
) ([]catalog.Artist, *enrich.Result, error) {
	client, err := lastfm.New(cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, nil, err
	}

	cache := enrich.NewCache(store.DB(), cfg.CacheTTLDays)
	if removed, err := cache.CleanExpired(ctx); err != nil {
		log.Warn().Err(err).Msg("cleaning Last.fm cache failed")
	} else if removed > 0 {
		log.Debug().Int64("rows", removed).Msg("expired Last.fm cache entries removed")
	}

	e := enrich.New(client, cache, enrich.Config{
		Limit:          cfg.SimilarLimit,
		MatchThreshold: cfg.MatchThreshold,
	}, log)

	out, res, err := e.Enrich(ctx, artists)
	if err != nil {
		return nil, nil, err
	}
	return out, &res, nil
}

func printSummary(w io.Writer, path string, stats ingest.Stats, enriched *enrich.Result) {
	fmt.Fprintln(w, headerStyle.Render("Snapshot written"), dimStyle.Render(path))
	fmt.Fprintln(w, stats.String())
	if enriched != nil {
		fmt.Fprintf(w, "artists enriched: %s (cached %s, unmatched %s, failed %s)\n",
			humanize.Comma(int64(enriched.Enriched)),
			humanize.Comma(int64(enriched.Cached)),
			humanize.Comma(int64(enriched.Unmatched)),
			humanize.Comma(int64(enriched.Failed)),
		)
	}
}
