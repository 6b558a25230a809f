package engine

import (
	"context"
	"time"
)

// RunJanitor sweeps the stores on the configured interval until ctx is
// cancelled. Run it in a background goroutine at service start.
func (eng *Engine) RunJanitor(ctx context.Context) {
	interval := eng.Config.JanitorInterval
	if interval <= 0 {
		interval = time.Hour
	}
	eng.Logger.Info("janitor started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			eng.Logger.Info("janitor stopped")
			return
		case <-ticker.C:
			eng.Sweep(ctx, time.Now())
		}
	}
}

// Sweep prunes expired frequency history, reclaims dead recipient records,
// compacts the fingerprint index down to its budget, and drops stale template
// usage. It takes the same per-shard locks as the hot path, so concurrent
// checks never see torn state.
func (eng *Engine) Sweep(ctx context.Context, now time.Time) {
	fstats, err := eng.Frequency.Prune(ctx, now)
	if err != nil {
		eng.Logger.Error("frequency prune failed", "err", err)
	}
	evicted, err := eng.Fingerprints.Compact(ctx, now)
	if err != nil {
		eng.Logger.Error("fingerprint compaction failed", "err", err)
	}
	tmplRemoved, err := eng.Templates.Prune(ctx, now)
	if err != nil {
		eng.Logger.Error("template prune failed", "err", err)
	}

	janitorSweepCount.Inc()
	trackedRecipientsGauge.Set(float64(fstats.Recipients))
	fingerprintEntriesGauge.Set(float64(eng.Fingerprints.Size()))
	templateEntriesGauge.Set(float64(eng.Templates.Size()))

	eng.Logger.Debug("janitor sweep completed",
		"trackedRecipients", fstats.Recipients,
		"removedRecipients", fstats.RemovedRecipients,
		"removedStamps", fstats.RemovedStamps,
		"fingerprintsEvicted", evicted,
		"templatesRemoved", tmplRemoved,
	)
}
