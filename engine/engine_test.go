package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Marseau/sendguard/auditstore"
	"github.com/Marseau/sendguard/engagement"
	"github.com/Marseau/sendguard/risk"
)

type stubLogReader struct {
	entries        []engagement.Entry
	blockUntilDone bool
}

func (r *stubLogReader) Query(ctx context.Context, tenantID, recipient string, since time.Time) ([]engagement.Entry, error) {
	if r.blockUntilDone {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return r.entries, nil
}

func trackSends(t *testing.T, eng *Engine, recipient string, stamps []time.Time) {
	t.Helper()
	for _, ts := range stamps {
		err := eng.TrackSent(context.Background(), &SentEvent{
			Recipient:   recipient,
			Content:     "olá, tudo bem?",
			MessageType: MessageTypeText,
			SentAt:      ts,
		})
		assert.NoError(t, err)
	}
}

func TestAnalyzeFrequencyGate(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	now := time.Now()

	// ten tracked sends within the last 59 minutes
	var stamps []time.Time
	for i := 0; i < 10; i++ {
		stamps = append(stamps, now.Add(-59*time.Minute+time.Duration(i)*time.Minute))
	}
	trackSends(t, eng, "R1", stamps)

	res := eng.Analyze(context.Background(), &CheckRequest{
		TenantID:    "tenant-1",
		Recipient:   "R1",
		Content:     "mensagem número onze",
		MessageType: MessageTypeText,
	})
	assert.False(res.Allowed)
	assert.Equal(risk.High, res.Level)
	assert.Equal([]string{risk.ReasonHourlyLimit}, res.Reasons)
}

func TestAnalyzeRapidFire(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	now := time.Now()

	var stamps []time.Time
	for i := 0; i < 5; i++ {
		stamps = append(stamps, now.Add(-time.Duration(i)*time.Second))
	}
	trackSends(t, eng, "R1", stamps)

	res := eng.Analyze(context.Background(), &CheckRequest{
		TenantID:    "tenant-1",
		Recipient:   "R1",
		Content:     "mais uma mensagem",
		MessageType: MessageTypeText,
	})
	assert.False(res.Allowed)
	assert.Equal(risk.High, res.Level)
	assert.Contains(res.Reasons, risk.ReasonRapidFire)
}

func TestAnalyzeTemplateThrottle(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	ctx := context.Background()

	assert.NoError(eng.TrackSent(ctx, &SentEvent{
		Recipient:    "R1",
		MessageType:  "template",
		IsTemplate:   true,
		TemplateName: "appointment_reminder",
		SentAt:       time.Now().Add(-10 * time.Minute),
	}))

	res := eng.Analyze(ctx, &CheckRequest{
		TenantID:     "tenant-1",
		Recipient:    "R1",
		MessageType:  "template",
		IsTemplate:   true,
		TemplateName: "appointment_reminder",
	})
	assert.False(res.Allowed)
	assert.Equal(risk.High, res.Level)
	assert.Equal([]string{risk.ReasonTemplateLimit}, res.Reasons)
	assert.NotEmpty(res.Recommendations)

	// a different template for the same recipient is fine
	res = eng.Analyze(ctx, &CheckRequest{
		TenantID:     "tenant-1",
		Recipient:    "R1",
		MessageType:  "template",
		IsTemplate:   true,
		TemplateName: "payment_receipt",
	})
	assert.True(res.Allowed)
}

func TestAnalyzeContentRuleMerge(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	highRule := func(c *ContentContext) error {
		c.Escalate(risk.High)
		c.AddReason(risk.ReasonSpamKeywords)
		return nil
	}
	mediumRule := func(c *ContentContext) error {
		c.Escalate(risk.Medium)
		c.AddRecommendation("Reduce excessive capitalization")
		return nil
	}

	eng := EngineTestFixture()
	eng.Rules = RuleSet{ContentRules: []ContentRuleFunc{mediumRule}}
	res := eng.Analyze(ctx, &CheckRequest{Recipient: "R1", Content: "x", MessageType: MessageTypeText})
	assert.True(res.Allowed)
	assert.Equal(risk.Medium, res.Level)
	assert.Equal([]string{"Reduce excessive capitalization"}, res.Recommendations)

	// a high content signal blocks, and severity never decreases afterwards
	eng = EngineTestFixture()
	eng.Rules = RuleSet{ContentRules: []ContentRuleFunc{highRule, mediumRule}}
	res = eng.Analyze(ctx, &CheckRequest{Recipient: "R1", Content: "x", MessageType: MessageTypeText})
	assert.False(res.Allowed)
	assert.Equal(risk.High, res.Level)
	assert.Equal([]string{risk.ReasonSpamKeywords}, res.Reasons)

	// non-text messages skip content rules entirely
	eng = EngineTestFixture()
	eng.Rules = RuleSet{ContentRules: []ContentRuleFunc{highRule}}
	res = eng.Analyze(ctx, &CheckRequest{Recipient: "R1", MessageType: "image"})
	assert.True(res.Allowed)
	assert.Equal(risk.Low, res.Level)
}

func TestAnalyzeResultJSONShape(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()

	// a clean pass still serializes reasons/recommendations as arrays,
	// never null
	res := eng.Analyze(context.Background(), &CheckRequest{
		TenantID:    "tenant-1",
		Recipient:   "R1",
		Content:     "mensagem tranquila de acompanhamento",
		MessageType: MessageTypeText,
	})
	assert.NotNil(res.Reasons)
	assert.NotNil(res.Recommendations)

	b, err := json.Marshal(res)
	assert.NoError(err)
	assert.JSONEq(`{"allowed":true,"riskLevel":"low","reasons":[],"recommendations":[]}`, string(b))
}

func TestAnalyzeEngagementAdvisory(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	now := time.Now()

	var entries []engagement.Entry
	for i := 0; i < 20; i++ {
		entries = append(entries, engagement.Entry{Role: engagement.RoleAssistant, Time: now, Confidence: 0.9})
	}
	entries = append(entries, engagement.Entry{Role: engagement.RoleUser, Time: now, Confidence: 0.9})
	eng.Engagement = engagement.NewAnalyzer(&stubLogReader{entries: entries}, eng.Logger, eng.Config.MinResponseRate, eng.Config.EngagementWindow)

	res := eng.Analyze(context.Background(), &CheckRequest{
		TenantID:    "tenant-1",
		Recipient:   "R1",
		Content:     "mensagem de acompanhamento",
		MessageType: MessageTypeText,
	})
	// engagement annotates but never flips the decision by itself
	assert.True(res.Allowed)
	assert.Equal(risk.High, res.Level)
	assert.Contains(res.Reasons, risk.ReasonLowEngagement)
	assert.Contains(res.Recommendations, "Consider reducing message frequency to this recipient")
}

func TestAnalyzeEngagementOutage(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	eng.Config.EngagementTimeout = 20 * time.Millisecond
	eng.Engagement = engagement.NewAnalyzer(&stubLogReader{blockUntilDone: true}, eng.Logger, eng.Config.MinResponseRate, eng.Config.EngagementWindow)

	// the conversation log hangs past the deadline; the decision is
	// determined solely by the frequency/content checks
	start := time.Now()
	res := eng.Analyze(context.Background(), &CheckRequest{
		TenantID:    "tenant-1",
		Recipient:   "R1",
		Content:     "mensagem de acompanhamento",
		MessageType: MessageTypeText,
	})
	assert.True(res.Allowed)
	assert.Equal(risk.Low, res.Level)
	assert.Empty(res.Reasons)
	assert.Less(time.Since(start), time.Second)
}

func TestAnalyzeAuditForward(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	now := time.Now()

	var stamps []time.Time
	for i := 0; i < 10; i++ {
		stamps = append(stamps, now.Add(-30*time.Minute+time.Duration(i)*time.Minute))
	}
	trackSends(t, eng, "+5511999990001", stamps)

	longContent := ""
	for i := 0; i < 30; i++ {
		longContent += "promoção "
	}
	res := eng.Analyze(context.Background(), &CheckRequest{
		TenantID:    "tenant-1",
		Recipient:   "+5511999990001",
		Content:     longContent,
		MessageType: MessageTypeText,
	})
	assert.False(res.Allowed)

	// the audit write is detached from the call that got the decision
	ms := eng.Audit.(*auditstore.MemAuditStore)
	assert.Eventually(func() bool {
		return len(ms.Events()) == 1
	}, time.Second, 10*time.Millisecond)

	evt := ms.Events()[0]
	assert.Equal("tenant-1", evt.TenantID)
	assert.True(evt.Blocked)
	assert.Equal("high", evt.RiskLevel)
	assert.Equal([]string{risk.ReasonHourlyLimit}, evt.Reasons)
	assert.Equal(len(longContent), evt.ContentLength)
	assert.Equal(100, len([]rune(evt.ContentPreview)))
}

func TestAnalyzePanicRecovery(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	eng.Rules = RuleSet{ContentRules: []ContentRuleFunc{
		func(c *ContentContext) error { panic("boom") },
	}}

	res := eng.Analyze(context.Background(), &CheckRequest{
		Recipient:   "R1",
		Content:     "qualquer coisa",
		MessageType: MessageTypeText,
	})
	// fail open: a broken rule must never take the send pipeline down
	assert.True(res.Allowed)
	assert.Equal(risk.Unknown, res.Level)
	assert.Equal([]string{risk.ReasonAnalysisFailed}, res.Reasons)
	assert.NotNil(res.Recommendations)
}

func TestTrackSentRegistersAllStores(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	ctx := context.Background()
	now := time.Now()

	assert.NoError(eng.TrackSent(ctx, &SentEvent{
		Recipient:    "R1",
		Content:      "Oferta imperdível hoje",
		MessageType:  MessageTypeText,
		IsTemplate:   true,
		TemplateName: "promo",
		SentAt:       now,
	}))

	n, err := eng.Frequency.CountSince(ctx, "R1", now.Add(-time.Minute))
	assert.NoError(err)
	assert.Equal(1, n)
	assert.Equal(1, eng.Fingerprints.Size())
	assert.Equal(1, eng.Templates.Size())
}

func TestSweepBoundsState(t *testing.T) {
	assert := assert.New(t)
	eng := EngineTestFixture()
	ctx := context.Background()
	now := time.Now()

	trackSends(t, eng, "stale", []time.Time{now.Add(-8 * 24 * time.Hour)})
	trackSends(t, eng, "fresh", []time.Time{now.Add(-time.Hour)})

	eng.Sweep(ctx, now)

	stats := eng.ReadStats(ctx)
	assert.Equal(1, stats.TrackedRecipients)
}
