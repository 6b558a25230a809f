package engine

import (
	"context"

	"github.com/Marseau/sendguard/risk"
)

// Interface for a type that can alert humans about high-risk decisions.
// The recipient argument arrives already masked.
type Notifier interface {
	SendHighRisk(ctx context.Context, tenantID, maskedRecipient string, res risk.AnalysisResult) error
}
