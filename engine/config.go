package engine

import (
	"fmt"
	"time"

	"github.com/Marseau/sendguard/fingerprint"
	"github.com/Marseau/sendguard/freqstore"
)

// Default keyword list; matches the phrasing mix (Portuguese and English)
// seen in blocked campaigns.
var DefaultSpamKeywords = []string{
	"grátis", "free", "promoção urgente", "últimas vagas",
	"clique aqui", "click here", "limited time", "act now",
	"ganhe dinheiro", "make money", "$$$", "garantido",
}

// Config holds every tunable threshold. Loaded once at startup, validated,
// and immutable afterwards.
type Config struct {
	// per-recipient frequency limits; a count equal to the limit blocks
	MaxPerHour int
	MaxPerDay  int
	MaxPerWeek int

	// identical normalized content sent this many times (to any recipients)
	// marks further sends as duplicates
	DuplicateThreshold int

	// sends to one recipient within RapidFireWindow that trip the rapid-fire gate
	RapidFireThreshold int
	RapidFireWindow    time.Duration

	// engagement scoring
	MinResponseRate   float64
	EngagementWindow  time.Duration
	EngagementTimeout time.Duration

	// same template to same recipient throttle
	TemplateFrequencyLimit time.Duration

	// content heuristics
	SpamKeywords              []string
	CapitalRatioThreshold     float64
	ExclamationCountThreshold int
	ContentLengthMin          int
	ContentLengthMax          int

	// fingerprint index compaction
	FingerprintRetention int
	FingerprintEviction  string

	// frequency history retention
	FrequencyRetentionDays int

	JanitorInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxPerHour:                10,
		MaxPerDay:                 50,
		MaxPerWeek:                200,
		DuplicateThreshold:        3,
		RapidFireThreshold:        5,
		RapidFireWindow:           30 * time.Second,
		MinResponseRate:           0.1,
		EngagementWindow:          30 * 24 * time.Hour,
		EngagementTimeout:         3 * time.Second,
		TemplateFrequencyLimit:    time.Hour,
		SpamKeywords:              DefaultSpamKeywords,
		CapitalRatioThreshold:     0.5,
		ExclamationCountThreshold: 3,
		ContentLengthMin:          10,
		ContentLengthMax:          1000,
		FingerprintRetention:      1000,
		FingerprintEviction:       "topk",
		FrequencyRetentionDays:    7,
		JanitorInterval:           time.Hour,
	}
}

// Validate fails fast on thresholds that would make the engine nonsensical.
// Called before serving any request; an error here is fatal.
func (c *Config) Validate() error {
	for name, v := range map[string]int{
		"max-per-hour":          c.MaxPerHour,
		"max-per-day":           c.MaxPerDay,
		"max-per-week":          c.MaxPerWeek,
		"duplicate-threshold":   c.DuplicateThreshold,
		"rapid-fire-threshold":  c.RapidFireThreshold,
		"content-length-min":    c.ContentLengthMin,
		"content-length-max":    c.ContentLengthMax,
		"fingerprint-retention": c.FingerprintRetention,
	} {
		if v < 0 {
			return fmt.Errorf("config: %s must not be negative (got %d)", name, v)
		}
	}
	if c.MinResponseRate < 0 || c.MinResponseRate > 1 {
		return fmt.Errorf("config: min-response-rate must be within [0,1] (got %f)", c.MinResponseRate)
	}
	if c.CapitalRatioThreshold < 0 || c.CapitalRatioThreshold > 1 {
		return fmt.Errorf("config: capital-ratio-threshold must be within [0,1] (got %f)", c.CapitalRatioThreshold)
	}
	if c.ContentLengthMax > 0 && c.ContentLengthMin > c.ContentLengthMax {
		return fmt.Errorf("config: content-length-min (%d) exceeds content-length-max (%d)", c.ContentLengthMin, c.ContentLengthMax)
	}
	if c.FrequencyRetentionDays < 7 {
		return fmt.Errorf("config: frequency-retention-days must cover the weekly window (got %d)", c.FrequencyRetentionDays)
	}
	if c.RapidFireWindow < 0 || c.TemplateFrequencyLimit < 0 || c.EngagementWindow < 0 {
		return fmt.Errorf("config: durations must not be negative")
	}
	if _, err := fingerprint.StrategyByName(c.FingerprintEviction); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// FrequencyLimits derives the freqstore limits. The reclaim grace period
// equals the retention window: an empty record whose first contact predates
// it holds no information worth keeping.
func (c *Config) FrequencyLimits() freqstore.Limits {
	retention := time.Duration(c.FrequencyRetentionDays) * 24 * time.Hour
	return freqstore.Limits{
		MaxPerHour: c.MaxPerHour,
		MaxPerDay:  c.MaxPerDay,
		MaxPerWeek: c.MaxPerWeek,
		Retention:  retention,
		Grace:      retention,
	}
}
