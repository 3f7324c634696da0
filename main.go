package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/llehouerou/songrec/internal/config"
	"github.com/llehouerou/songrec/internal/errmsg"
	"github.com/llehouerou/songrec/internal/logging"
	"github.com/llehouerou/songrec/internal/recommend"
	"github.com/llehouerou/songrec/internal/snapshot"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath   string
		snapshotPath string
		seed         uint64
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:           "songrec [song_id ...]",
		Short:         "Recommend one song from a listening history",
		Long:          "Recommends one song from the listening history given as song ids.\nWith no ids, a random song is picked.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, history []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return errmsg.Wrap(errmsg.OpConfigLoad, err)
			}

			logCfg := cfg.GetLogConfig()
			log := logging.New(logging.Config{Level: logCfg.Level, Format: logCfg.Format, Output: cmd.ErrOrStderr()})

			recCfg := cfg.GetRecommendConfig()
			if cmd.Flags().Changed("seed") {
				recCfg.Seed = &seed
			}
			opts, err := engineOptions(recCfg, log)
			if err != nil {
				return errmsg.Wrap(errmsg.OpConfigLoad, err)
			}

			path, err := resolveSnapshotPath(snapshotPath, cfg)
			if err != nil {
				return errmsg.Wrap(errmsg.OpSnapshotOpen, err)
			}

			ctx := cmd.Context()
			store, err := snapshot.Open(ctx, path)
			if err != nil {
				return errmsg.WrapWith(errmsg.OpSnapshotOpen, path, err)
			}
			defer store.Close()

			corpus, err := store.Load(ctx)
			if err != nil {
				if errors.Is(err, snapshot.ErrNoSnapshot) {
					fmt.Fprintf(cmd.ErrOrStderr(), "Run `ingest <dir>` to build %s first.\n", path)
				}
				return errmsg.Wrap(errmsg.OpCorpusLoad, err)
			}

			engine, err := recommend.New(corpus, opts...)
			if err != nil {
				return errmsg.Wrap(errmsg.OpRecommend, err)
			}

			rec := engine.Recommend(history)
			fmt.Fprintln(cmd.OutOrStdout(), render(rec, verbose))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file (TOML), loaded after the default locations")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "corpus snapshot (default from config or XDG data dir)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "fixed random seed for reproducible picks")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the strategy and score")
	return cmd
}

// engineOptions translates the recommend config into engine options.
func engineOptions(cfg config.RecommendConfig, log zerolog.Logger) ([]recommend.Option, error) {
	weights, err := recommend.WeightsFromSlice(cfg.Weights)
	if err != nil {
		return nil, err
	}

	opts := []recommend.Option{
		recommend.WithWeights(weights),
		recommend.WithLogger(log),
	}
	if cfg.Seed != nil {
		opts = append(opts, recommend.WithSeed(*cfg.Seed))
	}
	if cfg.Diversity == config.DiversityNone {
		opts = append(opts, recommend.WithDiversity(recommend.NoDiversity{}))
	}
	return opts, nil
}

// resolveSnapshotPath prefers the flag, then the config, then the XDG default.
func resolveSnapshotPath(flagPath string, cfg *config.Config) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if cfg.Snapshot.Path != "" {
		return cfg.Snapshot.Path, nil
	}
	return snapshot.DefaultPath()
}
