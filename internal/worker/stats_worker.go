package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/serverhub/internal/observability/metrics"
)

// ServerCounter reports directory totals
type ServerCounter interface {
	CountServers(ctx context.Context) (total, published int, err error)
}

// StatsWorker periodically refreshes the tenant directory gauges
type StatsWorker struct {
	servers  ServerCounter
	logger   *slog.Logger
	interval time.Duration
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(servers ServerCounter, logger *slog.Logger, interval time.Duration) *StatsWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatsWorker{servers: servers, logger: logger, interval: interval}
}

// Start runs until ctx is cancelled, refreshing once immediately
func (w *StatsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stats worker started", slog.Duration("interval", w.interval))
	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stats worker stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *StatsWorker) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	total, published, err := w.servers.CountServers(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("failed to count servers", slog.String("error", err.Error()))
		}
		return
	}
	metrics.SetServerCounts(total, published)
	w.logger.Debug("directory stats refreshed",
		slog.Int("servers", total),
		slog.Int("published", published),
	)
}
