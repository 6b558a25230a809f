package engine

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Marseau/sendguard/auditstore"
	"github.com/Marseau/sendguard/engagement"
	"github.com/Marseau/sendguard/fingerprint"
	"github.com/Marseau/sendguard/freqstore"
	"github.com/Marseau/sendguard/risk"
	"github.com/Marseau/sendguard/templatestore"
)

const (
	MessageTypeText = "text"

	// stored audit rows keep only a prefix of the message body
	contentPreviewLength = 100
)

var (
	// time period within which the notifier will not re-alert for the same
	// (recipient, reason) pair
	NotifyDupePeriod = time.Hour
	// how long a detached audit/notify write may take after the caller
	// already has its decision
	auditTimeout = 5 * time.Second
)

// Runtime for admission control over outbound messages: composes the
// frequency, fingerprint, content, template and engagement signals into one
// decision per candidate send.
//
// All stores are explicit owned state, constructed at service start and
// injected here; there are no package-level singletons.
type Engine struct {
	Logger       *slog.Logger
	Config       Config
	Rules        RuleSet
	Frequency    freqstore.FrequencyStore
	Fingerprints fingerprint.Index
	Templates    templatestore.TemplateStore
	// optional; nil skips engagement scoring entirely
	Engagement *engagement.Analyzer
	// optional best-effort sink for high-risk decisions
	Audit auditstore.AuditStore
	// optional high-risk alerting
	Notifier Notifier

	dedupeOnce   sync.Once
	notifyDedupe *expirable.LRU[string, bool]
}

// CheckRequest describes one candidate outbound message.
type CheckRequest struct {
	TenantID     string
	Recipient    string
	Content      string
	MessageType  string
	IsTemplate   bool
	TemplateName string
}

// SentEvent registers a message actually dispatched by the send pipeline.
// Not idempotent: call exactly once per logical send.
type SentEvent struct {
	Recipient    string
	Content      string
	MessageType  string
	IsTemplate   bool
	TemplateName string
	SentAt       time.Time
}

// Analyze decides whether sending is safe. It always returns a decision and
// never an error: the engine is advisory risk-reduction, not a hard security
// boundary, so dependency failures degrade to permissive results rather than
// blocking the send pipeline. Cancellation/deadline on ctx bounds the
// engagement query only.
func (eng *Engine) Analyze(ctx context.Context, req *CheckRequest) (res risk.AnalysisResult) {
	start := time.Now()
	logger := eng.Logger.With("tenant", req.TenantID, "recipient", MaskRecipient(req.Recipient))

	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			logger.Error("analysis execution exception", "err", r)
			res = risk.AnalysisResult{
				Allowed:         true,
				Level:           risk.Unknown,
				Reasons:         []string{risk.ReasonAnalysisFailed},
				Recommendations: []string{},
			}
		}
	}()

	now := time.Now()
	// reasons and recommendations marshal as arrays even when empty
	res = risk.AnalysisResult{Allowed: true, Level: risk.Low, Reasons: []string{}, Recommendations: []string{}}

	// frequency gate; a block here short-circuits everything else
	fc, err := eng.Frequency.Check(ctx, req.Recipient, now)
	if err != nil {
		logger.Warn("frequency check failed, allowing", "err", err)
	} else if !fc.Allowed {
		res.Allowed = false
		res.Level = risk.High
		res.Reasons = append(res.Reasons, fc.Reason)
		logger.Info("frequency limit hit", "window", fc.Window, "count", fc.Count, "limit", fc.Limit)
		eng.finish(ctx, logger, req, &res, start)
		return res
	}

	// content signals, text only
	if req.MessageType == MessageTypeText {
		c := &ContentContext{
			Ctx:     ctx,
			Logger:  logger,
			Content: req.Content,
			engine:  eng,
		}
		if err := eng.Rules.CallContentRules(c); err != nil {
			logger.Warn("content rule failed, ignoring its signal", "err", err)
		}
		res.Level = risk.Max(res.Level, c.effects.level)
		res.Reasons = append(res.Reasons, c.effects.reasons...)
		res.Recommendations = append(res.Recommendations, c.effects.recommendations...)
		if c.effects.level == risk.High {
			res.Allowed = false
		}
	}

	// template throttle
	if req.IsTemplate && req.TemplateName != "" {
		tc, err := eng.Templates.Check(ctx, req.TemplateName, req.Recipient, now)
		if err != nil {
			logger.Warn("template check failed, allowing", "err", err)
		} else if !tc.Allowed {
			res.Allowed = false
			res.Level = risk.High
			res.Reasons = append(res.Reasons, risk.ReasonTemplateLimit)
			res.Recommendations = append(res.Recommendations,
				"Template was recently sent to this recipient; retry in "+strconv.Itoa(tc.RetryAfterMinutes)+" minutes")
		}
	}

	// engagement is advisory: it can raise the level and annotate, but never
	// flips the decision by itself. No store lock is held across this call.
	if eng.Engagement != nil {
		ectx := ctx
		if eng.Config.EngagementTimeout > 0 {
			var cancel context.CancelFunc
			ectx, cancel = context.WithTimeout(ctx, eng.Config.EngagementTimeout)
			defer cancel()
		}
		ea := eng.Engagement.Assess(ectx, req.TenantID, req.Recipient, now)
		res.Level = risk.Max(res.Level, ea.Level)
		res.Reasons = append(res.Reasons, ea.Reasons...)
		if ea.Level == risk.High {
			res.Recommendations = append(res.Recommendations, "Consider reducing message frequency to this recipient")
		}
	}

	// rapid-fire gate
	if eng.Config.RapidFireThreshold > 0 {
		n, err := eng.Frequency.CountSince(ctx, req.Recipient, now.Add(-eng.Config.RapidFireWindow))
		if err != nil {
			logger.Warn("rapid-fire check failed, allowing", "err", err)
		} else if n >= eng.Config.RapidFireThreshold {
			res.Allowed = false
			res.Level = risk.High
			res.Reasons = append(res.Reasons, risk.ReasonRapidFire)
		}
	}

	eng.finish(ctx, logger, req, &res, start)
	return res
}

// finish records metrics and forwards high-risk decisions to the audit sink
// and notifier. The forward is detached: it runs after the decision is final
// and its failure can neither change nor delay what the caller sees.
func (eng *Engine) finish(ctx context.Context, logger *slog.Logger, req *CheckRequest, res *risk.AnalysisResult, start time.Time) {
	analyzeDuration.WithLabelValues(req.MessageType).Observe(time.Since(start).Seconds())
	decisionCount.WithLabelValues(res.Level.String(), strconv.FormatBool(res.Allowed)).Inc()
	if !res.Allowed && len(res.Reasons) > 0 {
		blockedCount.WithLabelValues(res.Reasons[0]).Inc()
	}

	if res.Level != risk.High {
		return
	}
	logger.Warn("high-risk message detected",
		"allowed", res.Allowed,
		"reasons", res.Reasons,
		"messageType", req.MessageType,
	)
	result := *res
	request := *req
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("audit forward exception", "err", r)
			}
		}()
		actx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		eng.recordAudit(actx, logger, &request, result)
		eng.notifyHighRisk(actx, logger, &request, result)
	}()
}

func (eng *Engine) recordAudit(ctx context.Context, logger *slog.Logger, req *CheckRequest, res risk.AnalysisResult) {
	if eng.Audit == nil {
		return
	}
	meta := auditstore.MessageMeta{
		MessageType:    req.MessageType,
		ContentPreview: truncate(req.Content, contentPreviewLength),
		ContentLength:  len(req.Content),
		IsTemplate:     req.IsTemplate,
		TemplateName:   req.TemplateName,
	}
	if err := eng.Audit.Record(ctx, req.TenantID, req.Recipient, res, meta); err != nil {
		auditErrorCount.Inc()
		logger.Error("audit record failed", "err", err)
	}
}

func (eng *Engine) notifyHighRisk(ctx context.Context, logger *slog.Logger, req *CheckRequest, res risk.AnalysisResult) {
	if eng.Notifier == nil {
		return
	}
	eng.dedupeOnce.Do(func() {
		eng.notifyDedupe = expirable.NewLRU[string, bool](1024, nil, NotifyDupePeriod)
	})
	key := req.Recipient
	if len(res.Reasons) > 0 {
		key += "/" + res.Reasons[0]
	}
	if _, seen := eng.notifyDedupe.Get(key); seen {
		return
	}
	eng.notifyDedupe.Add(key, true)
	if err := eng.Notifier.SendHighRisk(ctx, req.TenantID, MaskRecipient(req.Recipient), res); err != nil {
		notifyErrorCount.Inc()
		logger.Error("high-risk notification failed", "err", err)
	}
}

// TrackSent registers an actually-dispatched message into the frequency,
// fingerprint and template stores.
func (eng *Engine) TrackSent(ctx context.Context, evt *SentEvent) error {
	now := evt.SentAt
	if now.IsZero() {
		now = time.Now()
	}
	trackedSendCount.WithLabelValues(evt.MessageType).Inc()

	if err := eng.Frequency.RecordSend(ctx, evt.Recipient, now); err != nil {
		return err
	}
	if evt.MessageType == MessageTypeText && evt.Content != "" {
		if _, err := eng.Fingerprints.Increment(ctx, fingerprint.Hash(evt.Content)); err != nil {
			return err
		}
	}
	if evt.IsTemplate && evt.TemplateName != "" {
		if err := eng.Templates.RecordSend(ctx, evt.TemplateName, evt.Recipient, now); err != nil {
			return err
		}
	}
	return nil
}

// Stats summarizes in-memory tracking state for health reporting.
type Stats struct {
	TrackedRecipients   int `json:"trackedRecipients"`
	ActiveRecipients24h int `json:"activeRecipients24h"`
	Messages24h         int `json:"messages24h"`
	Fingerprints        int `json:"fingerprints"`
	TemplateEntries     int `json:"templateEntries"`
}

func (eng *Engine) ReadStats(ctx context.Context) Stats {
	fs, err := eng.Frequency.ReadStats(ctx, time.Now())
	if err != nil {
		eng.Logger.Warn("frequency stats read failed", "err", err)
	}
	return Stats{
		TrackedRecipients:   fs.TrackedRecipients,
		ActiveRecipients24h: fs.ActiveRecipients,
		Messages24h:         fs.MessagesPastDay,
		Fingerprints:        eng.Fingerprints.Size(),
		TemplateEntries:     eng.Templates.Size(),
	}
}
