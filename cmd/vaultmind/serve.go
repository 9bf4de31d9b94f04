package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dvloznov/vaultmind/internal/advisor"
	"github.com/dvloznov/vaultmind/internal/api"
	"github.com/dvloznov/vaultmind/internal/api/handlers"
	"github.com/dvloznov/vaultmind/internal/jobs"
	"github.com/dvloznov/vaultmind/internal/jobs/inmemory"
	"github.com/dvloznov/vaultmind/internal/ledger"
	"github.com/dvloznov/vaultmind/internal/scenario"
	"github.com/spf13/cobra"
)

// jobBufferSize is how many advice jobs may wait for a worker.
const jobBufferSize = 100

// unconfiguredAdvisor fails every advice job without retrying.
type unconfiguredAdvisor struct{}

func (unconfiguredAdvisor) Advise(ctx context.Context, s advisor.Summary) (string, error) {
	return "", jobs.Permanent(errors.New("no Gemini API key configured"))
}

func (a *app) newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and run the advice job workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()
			log := a.log

			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			store := a.store()
			cache := ledger.NewCache(store, a.cfg.Ledger.CacheTTL)
			engine := a.engine()

			gen, err := a.generator(a.cfg.Stream.Catalog)
			if err != nil {
				return err
			}
			injector := scenario.NewInjector(gen, store, log)

			var adv advisor.Advisor = unconfiguredAdvisor{}
			if a.cfg.Gemini.APIKey != "" {
				gemini, err := advisor.NewGeminiAdvisor(ctx, advisor.GeminiConfig{
					APIKey: a.cfg.Gemini.APIKey,
					Model:  a.cfg.Gemini.Model,
				})
				if err != nil {
					return err
				}
				adv = gemini
			} else {
				log.Warn().Msg("No Gemini API key configured - advice jobs will fail")
			}

			// Initialize job infrastructure
			jobStore := inmemory.NewStore()
			jobQueue := inmemory.NewQueue(jobBufferSize, jobStore,
				inmemory.WithWorkers(a.cfg.Server.Workers),
				inmemory.WithMaxRetries(a.cfg.Server.MaxRetries),
				inmemory.WithBackoff(a.cfg.Server.RetryBackoff),
			)

			workerCtx, cancelWorker := context.WithCancel(context.WithoutCancel(ctx))
			defer cancelWorker()
			if err := jobQueue.Start(workerCtx, advisor.JobHandler(cache, engine, adv, a.now, log)); err != nil {
				return err
			}

			handler := api.NewRouter(api.Handlers{
				Transactions: handlers.NewTransactionsHandler(cache, store, a.loc, a.now, log),
				Alerts:       handlers.NewAlertsHandler(cache, engine, a.now, log),
				Scenarios:    handlers.NewScenariosHandler(injector, cache, log),
				Jobs:         handlers.NewJobsHandler(jobQueue, jobStore, log),
			}, log)

			server := &http.Server{
				Addr:         ":" + a.cfg.Server.Port,
				Handler:      handler,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				log.Info().Str("port", a.cfg.Server.Port).Str("ledger", a.cfg.Ledger.Path).Msg("Starting API server")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Server forced to shutdown")
			}

			// Stop job queue and wait for in-flight jobs
			if err := jobQueue.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Error stopping job queue")
			}
			cancelWorker()
			if err := jobQueue.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close job queue")
			}

			log.Info().Msg("Server exited")
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "HTTP port (default from config or PORT)")
	return cmd
}
