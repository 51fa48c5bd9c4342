package agent

import "strings"

// Intent is the classified category of a query. It determines which agent
// node handles the query.
type Intent string

const (
	IntentPolicy    Intent = "policy"
	IntentClaims    Intent = "claims"
	IntentReasoning Intent = "reasoning"
	IntentFallback  Intent = "fallback"
)

// Rule maps a set of keywords to an intent. Rules are evaluated in order and
// the first match wins.
type Rule struct {
	Intent   Intent
	Keywords []string
}

// DefaultRules is the prioritized rule list. Explanatory terms outrank the
// domain terms so a "why"/"how" question that also names a policy or claim
// routes to the composite reasoning agent instead of a single branch.
// Anything else falls through to fallback.
func DefaultRules() []Rule {
	return []Rule{
		{Intent: IntentReasoning, Keywords: []string{"why", "how"}},
		{Intent: IntentPolicy, Keywords: []string{"policy", "eligibility"}},
		{Intent: IntentClaims, Keywords: []string{"claim", "reimbursement"}},
	}
}

// Classifier assigns an intent to every query. It is a total function: a
// query that matches no rule classifies as fallback, never as an error.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier over the default rule list.
func NewClassifier() *Classifier {
	return NewClassifierWithRules(DefaultRules())
}

// NewClassifierWithRules creates a classifier over a custom rule list.
func NewClassifierWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the intent for a query.
func (c *Classifier) Classify(query string) Intent {
	q := strings.ToLower(query)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(q, kw) {
				return rule.Intent
			}
		}
	}
	return IntentFallback
}
