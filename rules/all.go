package rules

import (
	"github.com/Marseau/sendguard"
)

func DefaultRules() sendguard.RuleSet {
	return sendguard.RuleSet{
		ContentRules: []sendguard.ContentRuleFunc{
			SpamKeywordRule,
			CapitalizationRule,
			ExclamationRule,
			DuplicateContentRule,
			LengthRule,
		},
	}
}
