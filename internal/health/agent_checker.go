package health

import (
	"context"
	"fmt"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
)

// AgentChecker reports whether the configured agents can be invoked
type AgentChecker struct {
	agents []agent.Agent
}

func NewAgentChecker(agents ...agent.Agent) *AgentChecker {
	return &AgentChecker{agents: agents}
}

func (c *AgentChecker) Name() string {
	return "agents"
}

// Check is healthy when every agent is available, degraded when some are and
// unhealthy when none are
func (c *AgentChecker) Check(ctx context.Context) *Result {
	if len(c.agents) == 0 {
		return Unhealthy("no agents configured").
			WithDetail("suggestion", "Set master_agent_type and worker_agent_type")
	}

	available := 0
	details := make(map[string]any)
	for _, a := range c.agents {
		ok := a.IsAvailable()
		if ok {
			available++
		}
		details[string(a.Type())] = map[string]any{
			"available":    ok,
			"capabilities": a.Capabilities(),
		}
	}

	var result *Result
	switch {
	case available == 0:
		result = Unhealthy(fmt.Sprintf("no agents available (0/%d)", len(c.agents)))
	case available < len(c.agents):
		result = Degraded(fmt.Sprintf("some agents unavailable (%d/%d)", available, len(c.agents)))
	default:
		result = Healthy(fmt.Sprintf("all agents available (%d/%d)", available, len(c.agents)))
	}
	return result.WithDetail("agents", details)
}
