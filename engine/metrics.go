package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var analyzeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "sendguard_analyze_duration_sec",
	Help: "Total duration of admission analysis",
}, []string{"type"})

var decisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sendguard_decisions",
	Help: "Number of admission decisions, by risk level and outcome",
}, []string{"risk", "allowed"})

var blockedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sendguard_blocked_messages",
	Help: "Number of blocked sends, by first reason",
}, []string{"reason"})

var trackedSendCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sendguard_tracked_sends",
	Help: "Number of dispatched messages registered via TrackSent",
}, []string{"type"})

var auditErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sendguard_audit_errors",
	Help: "Number of failed audit sink writes",
})

var notifyErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sendguard_notify_errors",
	Help: "Number of failed high-risk notifications",
})

var janitorSweepCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sendguard_janitor_sweeps",
	Help: "Number of completed janitor sweeps",
})

var trackedRecipientsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "sendguard_tracked_recipients",
	Help: "Recipients with send history currently in memory",
})

var fingerprintEntriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "sendguard_fingerprint_entries",
	Help: "Content fingerprints currently indexed",
})

var templateEntriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "sendguard_template_entries",
	Help: "Template usage entries currently tracked",
})
