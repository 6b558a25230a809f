package engine

import (
	"log/slog"

	"github.com/Marseau/sendguard/auditstore"
	"github.com/Marseau/sendguard/fingerprint"
	"github.com/Marseau/sendguard/freqstore"
	"github.com/Marseau/sendguard/templatestore"
)

// EngineTestFixture returns an engine on in-memory stores with default
// config, no engagement reader and no notifier. Tests overwrite the fields
// they care about.
func EngineTestFixture() *Engine {
	cfg := DefaultConfig()
	return &Engine{
		Logger:       slog.Default(),
		Config:       cfg,
		Frequency:    freqstore.NewMemFrequencyStore(cfg.FrequencyLimits()),
		Fingerprints: fingerprint.NewMemIndex(cfg.FingerprintRetention, fingerprint.TopK{}),
		Templates:    templatestore.NewMemTemplateStore(cfg.TemplateFrequencyLimit),
		Audit:        auditstore.NewMemAuditStore(),
	}
}
