package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/whiteboxhub/agentic-rag/internal/core"
)

// NoRelevantDocument is the sentinel answer fragment used when retrieval
// finds nothing. Callers treat it as a legitimate outcome, not an error.
const NoRelevantDocument = "No relevant document found."

// FallbackAnswer is the deterministic answer for queries no rule matches.
const FallbackAnswer = "I cannot help with this query. Try asking about policies, claims or reimbursements."

// Node is one agent in the orchestration graph: a pure function of its input
// state plus its collaborator calls.
type Node interface {
	Name() string
	Run(ctx context.Context, state *State) error
}

// Orchestrator is the entry node. It classifies the query's intent so the
// graph's conditional edge can dispatch to exactly one agent.
type Orchestrator struct {
	classifier *Classifier
}

// NewOrchestrator creates the entry node over the given classifier.
func NewOrchestrator(classifier *Classifier) *Orchestrator {
	return &Orchestrator{classifier: classifier}
}

func (o *Orchestrator) Name() string { return "orchestrator" }

func (o *Orchestrator) Run(ctx context.Context, state *State) error {
	state.Intent = o.classifier.Classify(state.Query)
	return nil
}

// PolicyAgent answers policy questions grounded in retrieved passages.
type PolicyAgent struct {
	retriever core.Retriever
	topK      int
}

// NewPolicyAgent creates a policy agent over the retrieval capability.
func NewPolicyAgent(retriever core.Retriever, topK int) *PolicyAgent {
	return &PolicyAgent{retriever: retriever, topK: topK}
}

func (a *PolicyAgent) Name() string { return "policy_agent" }

func (a *PolicyAgent) Run(ctx context.Context, state *State) error {
	passages, err := a.retriever.Retrieve(ctx, state.Query, a.topK)
	if err != nil {
		return fmt.Errorf("policy retrieval failed: %w", err)
	}
	state.Answer = "[Policy Agent] " + formatPassages(passages)
	return nil
}

// ClaimsAgent answers claims questions grounded in retrieved passages.
type ClaimsAgent struct {
	retriever core.Retriever
	topK      int
}

// NewClaimsAgent creates a claims agent over the retrieval capability.
func NewClaimsAgent(retriever core.Retriever, topK int) *ClaimsAgent {
	return &ClaimsAgent{retriever: retriever, topK: topK}
}

func (a *ClaimsAgent) Name() string { return "claims_agent" }

func (a *ClaimsAgent) Run(ctx context.Context, state *State) error {
	passages, err := a.retriever.Retrieve(ctx, state.Query, a.topK)
	if err != nil {
		return fmt.Errorf("claims retrieval failed: %w", err)
	}
	state.Answer = "[Claims Agent] " + formatPassages(passages)
	return nil
}

// ReasoningAgent fuses the policy and claims perspectives into one
// interpretive answer. Both sub-agents run against independently scoped state
// copies so neither can contaminate the outer run, and both always run even
// when one comes back with the no-document sentinel.
type ReasoningAgent struct {
	policy *PolicyAgent
	claims *ClaimsAgent
}

// NewReasoningAgent creates the composite reasoning agent.
func NewReasoningAgent(retriever core.Retriever, topK int) *ReasoningAgent {
	return &ReasoningAgent{
		policy: NewPolicyAgent(retriever, topK),
		claims: NewClaimsAgent(retriever, topK),
	}
}

func (a *ReasoningAgent) Name() string { return "reasoning_agent" }

func (a *ReasoningAgent) Run(ctx context.Context, state *State) error {
	policyState := NewState(state.Query)
	if err := a.policy.Run(ctx, policyState); err != nil {
		return err
	}
	claimsState := NewState(state.Query)
	if err := a.claims.Run(ctx, claimsState); err != nil {
		return err
	}

	state.Context["policy_answer"] = policyState.Answer
	state.Context["claims_answer"] = claimsState.Answer
	state.Answer = fmt.Sprintf(
		"[Reasoning Agent] Combined reasoning:\n- Policy Context: %s\n- Claims Context: %s\nFinal Interpretation: The claim outcome is likely governed by the eligibility rules above.",
		policyState.Answer, claimsState.Answer)
	return nil
}

// FallbackAgent produces a fixed answer for unclassified intents. It never
// performs a vector search: no agent-specific grounding context exists for
// such queries.
type FallbackAgent struct{}

// NewFallbackAgent creates the fallback agent.
func NewFallbackAgent() *FallbackAgent {
	return &FallbackAgent{}
}

func (a *FallbackAgent) Name() string { return "fallback_agent" }

func (a *FallbackAgent) Run(ctx context.Context, state *State) error {
	state.Answer = "[Fallback Agent] " + FallbackAnswer
	return nil
}

// formatPassages renders retrieved passages into an answer fragment, or the
// no-document sentinel when nothing was retrieved.
func formatPassages(passages []core.Passage) string {
	if len(passages) == 0 {
		return NoRelevantDocument
	}
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = fmt.Sprintf("%s (score=%.4f)", strings.TrimSpace(p.Text), p.Score)
	}
	return strings.Join(parts, "\n")
}
