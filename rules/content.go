package rules

import (
	"strings"
	"unicode"

	"github.com/Marseau/sendguard"
	"github.com/Marseau/sendguard/keyword"
)

var (
	_ sendguard.ContentRuleFunc = SpamKeywordRule
	_ sendguard.ContentRuleFunc = CapitalizationRule
	_ sendguard.ContentRuleFunc = ExclamationRule
	_ sendguard.ContentRuleFunc = DuplicateContentRule
	_ sendguard.ContentRuleFunc = LengthRule
)

// flags messages matching several configured spam keywords; one or two
// matches is only worth a reword suggestion.
func SpamKeywordRule(c *sendguard.ContentContext) error {
	found := keyword.MatchKeywords(c.Content, c.Config().SpamKeywords)
	switch {
	case len(found) >= 3:
		c.Escalate(sendguard.RiskHigh)
		c.AddReason(sendguard.ReasonSpamKeywords)
	case len(found) >= 1:
		c.Escalate(sendguard.RiskMedium)
		c.AddRecommendation("Consider rewording to avoid spam keywords")
	}
	return nil
}

// SHOUTING is a classic spam tell, but only in messages long enough for the
// ratio to mean anything.
func CapitalizationRule(c *sendguard.ContentContext) error {
	runes := []rune(c.Content)
	if len(runes) <= 20 {
		return nil
	}
	upper := 0
	for _, r := range runes {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if float64(upper)/float64(len(runes)) > c.Config().CapitalRatioThreshold {
		c.Escalate(sendguard.RiskMedium)
		c.AddRecommendation("Reduce excessive capitalization")
	}
	return nil
}

func ExclamationRule(c *sendguard.ContentContext) error {
	if strings.Count(c.Content, "!") > c.Config().ExclamationCountThreshold {
		c.Escalate(sendguard.RiskMedium)
		c.AddRecommendation("Reduce excessive exclamation marks")
	}
	return nil
}

// flags content whose normalized fingerprint has already been sent at least
// the configured number of times, to any recipients.
func DuplicateContentRule(c *sendguard.ContentContext) error {
	threshold := c.Config().DuplicateThreshold
	if threshold > 0 && c.DuplicateCount() >= threshold {
		c.Escalate(sendguard.RiskHigh)
		c.AddReason(sendguard.ReasonDuplicate)
	}
	return nil
}

func LengthRule(c *sendguard.ContentContext) error {
	cfg := c.Config()
	length := len([]rune(c.Content))
	if cfg.ContentLengthMin > 0 && length < cfg.ContentLengthMin {
		c.Escalate(sendguard.RiskMedium)
		c.AddRecommendation("Message too short - consider adding more context")
	} else if cfg.ContentLengthMax > 0 && length > cfg.ContentLengthMax {
		c.Escalate(sendguard.RiskMedium)
		c.AddRecommendation("Message too long - consider breaking into multiple messages")
	}
	return nil
}
