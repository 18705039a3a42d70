package main

import (
	"errors"
	"time"

	"cinerate/movie"
	"cinerate/postgres"
	"cinerate/redis"
	"cinerate/syncjob"
	"cinerate/tmdb"

	"github.com/spf13/cobra"
)

func newSyncCmd(a *app) *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one TMDB sync pass: import popular titles and refresh stale movies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.TMDBConfigured() {
				return errors.New("TMDB_API_KEY or TMDB_TOKEN must be set")
			}
			log := a.log.Named("sync")

			opts := []movie.Option{movie.WithLogger(a.log.Named("movie"))}
			if a.cfg.Redis.URL != "" {
				cache, err := redis.NewCache(a.cfg.Redis.URL, a.cfg.Redis.TTL)
				if err != nil {
					return err
				}
				defer cache.Close()
				opts = append(opts, movie.WithCache(cache, a.cfg.Redis.TTL))
			}

			client := tmdb.New(tmdb.Config{
				BaseURL:    a.cfg.TMDB.BaseURL,
				APIKey:     a.cfg.TMDB.APIKey,
				Token:      a.cfg.TMDB.Token,
				Language:   a.cfg.TMDB.Language,
				Timeout:    a.cfg.TMDB.Timeout,
				MaxRetries: a.cfg.TMDB.MaxRetries,
				RetryDelay: a.cfg.TMDB.RetryDelay,
			},
				tmdb.WithLogger(a.log.Named("tmdb")),
				tmdb.WithRateLimit(a.cfg.TMDB.RPS),
				tmdb.WithCircuitBreaker(tmdb.NewCircuitBreaker("tmdb", 5, 30*time.Second, log)),
			)
			opts = append(opts, movie.WithMetadataSource(client))
			movies := movie.NewUsecase(postgres.NewMovieRepository(a.db), opts...)

			if pages < 0 {
				pages = a.cfg.Sync.PopularPages
			}
			job := syncjob.New(client, movies, syncjob.Config{
				PopularPages: pages,
				BatchSize:    a.cfg.Sync.BatchSize,
				Concurrency:  a.cfg.Sync.Concurrency,
				Delay:        a.cfg.Sync.Delay,
				StaleAfter:   a.cfg.Sync.StaleAfter,
			}, syncjob.WithLogger(log))

			report, err := job.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			log.Infow("sync report",
				"run_id", report.RunID,
				"result", report.Result,
				"imported", report.Imported,
				"refreshed", report.Refreshed,
				"failed", report.Failed,
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", -1, "Popular pages to import (default SYNC_POPULAR_PAGES)")
	return cmd
}
