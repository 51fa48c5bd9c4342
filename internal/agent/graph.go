package agent

import (
	"context"
	"fmt"

	"github.com/whiteboxhub/agentic-rag/internal/core"
	"github.com/whiteboxhub/agentic-rag/internal/logger"
	"github.com/whiteboxhub/agentic-rag/internal/memory"
)

// nodeID identifies a node in the orchestration graph.
type nodeID string

const (
	nodeOrchestrator nodeID = "orchestrator"
	nodePolicy       nodeID = "policy_agent"
	nodeClaims       nodeID = "claims_agent"
	nodeReasoning    nodeID = "reasoning_agent"
	nodeFallback     nodeID = "fallback_agent"
	nodeTerminated   nodeID = "terminated"
)

// Result is the externally observable outcome of one orchestration run.
type Result struct {
	Answer string `json:"answer"`
	Intent Intent `json:"intent"`
}

// Graph is the orchestration state machine: an entry node that classifies
// intent, a conditional edge that dispatches to exactly one agent node, and a
// single terminal state every path converges on.
//
// The routing table is data: node x intent -> next node, validated for
// totality at construction so no label can leak through unmapped.
type Graph struct {
	orchestrator *Orchestrator
	nodes        map[nodeID]Node
	routes       map[Intent]nodeID
	memory       *memory.Manager
}

// NewGraph wires the orchestration graph over the retrieval capability. The
// memory manager is optional; when present, each run's query and intent are
// recorded into short-term memory.
func NewGraph(ret core.Retriever, mem *memory.Manager, topK int) (*Graph, error) {
	g := &Graph{
		orchestrator: NewOrchestrator(NewClassifier()),
		nodes: map[nodeID]Node{
			nodePolicy:    NewPolicyAgent(ret, topK),
			nodeClaims:    NewClaimsAgent(ret, topK),
			nodeReasoning: NewReasoningAgent(ret, topK),
			nodeFallback:  NewFallbackAgent(),
		},
		routes: map[Intent]nodeID{
			IntentPolicy:    nodePolicy,
			IntentClaims:    nodeClaims,
			IntentReasoning: nodeReasoning,
			IntentFallback:  nodeFallback,
		},
		memory: mem,
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// validate checks the routing table for totality: every intent maps to a
// node that exists in the graph.
func (g *Graph) validate() error {
	for _, intent := range []Intent{IntentPolicy, IntentClaims, IntentReasoning, IntentFallback} {
		target, ok := g.routes[intent]
		if !ok {
			return fmt.Errorf("routing table has no edge for intent %q", intent)
		}
		if _, ok := g.nodes[target]; !ok {
			return fmt.Errorf("routing table maps intent %q to unknown node %q", intent, target)
		}
	}
	return nil
}

// AnswerQuery runs one query through the graph. It is total: every run
// terminates with a non-empty answer and one of the four intents, regardless
// of retrieval outcomes.
func (g *Graph) AnswerQuery(ctx context.Context, query string) Result {
	state := NewState(query)

	if err := g.orchestrator.Run(ctx, state); err != nil {
		// The classifier is total; this is unreachable but routing must
		// stay total regardless.
		state.Intent = IntentFallback
	}

	next := g.routes[state.Intent]
	node := g.nodes[next]
	logger.Debug("Query routed to %s (intent=%s)", node.Name(), state.Intent)

	if err := node.Run(ctx, state); err != nil {
		logger.Error("Agent %s failed, degrading to fallback answer: %v", node.Name(), err)
		state.Answer = "[" + node.Name() + "] " + NoRelevantDocument
	}
	if state.Answer == "" {
		state.Answer = "[Fallback Agent] " + FallbackAnswer
	}

	if g.memory != nil {
		g.memory.StoreShort("last_query", state.Query)
		g.memory.StoreShort("last_intent", string(state.Intent))
	}

	return Result{Answer: state.Answer, Intent: state.Intent}
}
