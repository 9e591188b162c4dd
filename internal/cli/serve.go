package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/symptomlog/internal/observe"
	"github.com/ppiankov/symptomlog/internal/server"
	"github.com/ppiankov/symptomlog/internal/worker"
)

var (
	serveAddr string
	serveLLM  bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the journal HTTP API",
	Long: `Serve exposes extraction and the journal over HTTP:

  POST /api/extract                  analyze a transcript (not saved)
  POST /api/entries                  record an entry (per-user rate limited)
  GET  /api/entries?user_id=&limit=  list a user's entries, newest first
  GET  /api/entries/{id}             fetch one entry
  GET  /api/users/{user_id}/stats    per-symptom statistics
  GET  /healthz                      health check
  GET  /metrics                      Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
	serveCmd.Flags().BoolVar(&serveLLM, "llm", false, "attach LLM recaps to recorded entries (requires llm.provider)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appCfg
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	logger := observe.Logger()

	provider, err := observe.InitProvider(observe.ProviderConfig{ServiceName: "symptomlog", ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("metrics shutdown failed")
		}
	}()

	metrics, err := observe.NewMetrics(provider.MeterProvider())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	a, err := newApp(cfg, appOptions{persist: true, recap: serveLLM, metrics: metrics})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	opts := server.Options{
		Config:   cfg.Server,
		Pipeline: a.pipeline,
		Entries:  a.store,
		Limiter:  worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		Metrics:  metrics,
		Health:   a.store.Ping,
		Logger:   logger,
	}
	if cfg.Server.Metrics {
		opts.MetricsHandler = provider.Handler()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("journal", a.store.Path()).
		Str("taxonomy", a.taxonomy.Fingerprint()).
		Msg("starting symptomlog server")

	return server.New(opts).ListenAndServe(ctx)
}
