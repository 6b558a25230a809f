package engine

import (
	"context"
	"log/slog"

	"github.com/Marseau/sendguard/fingerprint"
	"github.com/Marseau/sendguard/risk"
)

// ContentContext is handed to each content rule for one candidate message.
// Rules read the message and configuration through it and accumulate their
// findings as effects; severity only ever increases.
type ContentContext struct {
	Ctx     context.Context
	Logger  *slog.Logger
	Content string

	engine  *Engine
	effects contentEffects
}

type contentEffects struct {
	level           risk.Level
	reasons         []string
	recommendations []string
}

func (c *ContentContext) Config() *Config {
	return &c.engine.Config
}

// Escalate raises the accumulated risk level. Lower levels are ignored;
// findings are combined by maximum severity, never summed.
func (c *ContentContext) Escalate(l risk.Level) {
	c.effects.level = risk.Max(c.effects.level, l)
}

func (c *ContentContext) AddReason(reason string) {
	c.effects.reasons = append(c.effects.reasons, reason)
}

func (c *ContentContext) AddRecommendation(rec string) {
	c.effects.recommendations = append(c.effects.recommendations, rec)
}

// DuplicateCount returns how many times this exact normalized content has
// been sent so far, to any recipient. Read-only: checking a candidate does
// not count as a send.
func (c *ContentContext) DuplicateCount() int {
	n, err := c.engine.Fingerprints.Count(c.Ctx, fingerprint.Hash(c.Content))
	if err != nil {
		c.Logger.Warn("fingerprint lookup failed, treating as no duplicates", "err", err)
		return 0
	}
	if n < 0 {
		// counter invariant violation; clamp rather than crash the request
		c.Logger.Error("negative fingerprint count", "count", n)
		return 0
	}
	return n
}
