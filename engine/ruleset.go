package engine

// Holds configuration of which content rules should be run, and dispatches a
// candidate message to them. Only dispatches execution; merging of effects
// into the overall decision happens in the engine.
type RuleSet struct {
	ContentRules []ContentRuleFunc
}

type ContentRuleFunc func(c *ContentContext) error

func (r *RuleSet) CallContentRules(c *ContentContext) error {
	for _, f := range r.ContentRules {
		if err := f(c); err != nil {
			return err
		}
	}
	return nil
}
