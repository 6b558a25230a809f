package sendguard

import (
	"github.com/Marseau/sendguard/engine"
	"github.com/Marseau/sendguard/risk"
)

type Engine = engine.Engine
type Config = engine.Config
type RuleSet = engine.RuleSet
type CheckRequest = engine.CheckRequest
type SentEvent = engine.SentEvent
type Stats = engine.Stats

type ContentContext = engine.ContentContext
type ContentRuleFunc = engine.ContentRuleFunc

type Notifier = engine.Notifier
type SlackNotifier = engine.SlackNotifier

type RiskLevel = risk.Level
type AnalysisResult = risk.AnalysisResult

const (
	RiskUnknown = risk.Unknown
	RiskLow     = risk.Low
	RiskMedium  = risk.Medium
	RiskHigh    = risk.High

	MessageTypeText = engine.MessageTypeText
)

var (
	ReasonHourlyLimit   = risk.ReasonHourlyLimit
	ReasonDailyLimit    = risk.ReasonDailyLimit
	ReasonWeeklyLimit   = risk.ReasonWeeklyLimit
	ReasonDuplicate     = risk.ReasonDuplicate
	ReasonSpamKeywords  = risk.ReasonSpamKeywords
	ReasonTemplateLimit = risk.ReasonTemplateLimit
	ReasonLowEngagement = risk.ReasonLowEngagement
	ReasonLowConfidence = risk.ReasonLowConfidence
	ReasonRapidFire     = risk.ReasonRapidFire

	DefaultConfig       = engine.DefaultConfig
	DefaultSpamKeywords = engine.DefaultSpamKeywords
	EngineTestFixture   = engine.EngineTestFixture
)
