package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spendlens/spendlens/internal/config"
	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

// Generator turns an analysis document into short narrative insights. With
// no API key configured it falls back to a deterministic rule-based summary,
// so the feature degrades instead of failing.
type Generator struct {
	client *openai.Client
	logger *logger.Logger
}

// NewGenerator builds a generator. The client stays nil without an API key.
func NewGenerator(cfg config.InsightsConfig, log *logger.Logger) *Generator {
	g := &Generator{logger: log}
	if cfg.OpenAIAPIKey != "" {
		g.client = openai.NewClient(cfg.OpenAIAPIKey)
	}
	return g
}

// Narrate returns a handful of plain-language observations about the result.
func (g *Generator) Narrate(ctx context.Context, result *analysis.Result) []string {
	fallback := ruleBased(result)
	if g.client == nil {
		return fallback
	}

	doc := struct {
		Summary   analysis.Summary           `json:"summary"`
		Anomalies []analysis.Anomaly         `json:"anomalies"`
		Drivers   interface{}                `json:"cost_drivers"`
		Issues    []analysis.GovernanceIssue `json:"governance_issues"`
		Executive *analysis.ExecutiveSummary `json:"executive_summary"`
	}{
		Summary:   result.Summary,
		Anomalies: result.Anomalies,
		Drivers:   topDrivers(result, 5),
		Issues:    result.GovernanceIssues,
		Executive: result.Executive,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fallback
	}

	prompt := fmt.Sprintf(
		"You are a FinOps analyst. Given this cloud spend analysis, list 3-5 short, "+
			"actionable observations, one per line, no numbering:\n%s", payload)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
		MaxTokens: 300,
	})
	if err != nil || len(resp.Choices) == 0 {
		g.logger.Warnf("insight generation failed, using rule-based fallback: %v", err)
		return fallback
	}

	var lines []string
	for _, line := range strings.Split(resp.Choices[0].Message.Content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return fallback
	}
	return lines
}

func topDrivers(result *analysis.Result, n int) interface{} {
	if len(result.CostDrivers) < n {
		return result.CostDrivers
	}
	return result.CostDrivers[:n]
}

// ruleBased derives insights from the document alone.
func ruleBased(result *analysis.Result) []string {
	var out []string

	if len(result.CostDrivers) > 0 {
		top := result.CostDrivers[0]
		if result.Summary.TotalCost > 0 {
			share := top.Cost / result.Summary.TotalCost * 100
			out = append(out, fmt.Sprintf("%s is the largest cost driver at %.2f (%.0f%% of total spend).",
				top.Service, top.Cost, share))
		}
	}
	if n := len(result.Anomalies); n > 0 {
		worst := result.Anomalies[0]
		for _, a := range result.Anomalies {
			if a.Amount-a.Baseline > worst.Amount-worst.Baseline {
				worst = a
			}
		}
		out = append(out, fmt.Sprintf("%d spend %s detected; largest on %s (%.2f vs baseline %.2f).",
			n, plural("anomaly", "anomalies", n), worst.Date.Format("2006-01-02"), worst.Amount, worst.Baseline))
	}
	if n := len(result.IdleResources); n > 0 {
		out = append(out, fmt.Sprintf("%d %s idle; review for shutdown or rightsizing.",
			n, plural("resource looks", "resources look", n)))
	}
	for _, issue := range result.GovernanceIssues {
		if issue.Kind == analysis.IssuePolicyViolation {
			out = append(out, fmt.Sprintf("Policy %q exceeded: %s.", issue.Policy, issue.Detail))
		}
	}
	if result.Executive != nil && result.Executive.ForecastTrendPct > 10 {
		out = append(out, fmt.Sprintf("Spend is trending up %.0f%% month over month.",
			result.Executive.ForecastTrendPct))
	}
	if len(out) == 0 {
		out = append(out, "No notable cost signals in this window.")
	}
	return out
}

func plural(singular, plural string, n int) string {
	if n == 1 {
		return singular
	}
	return plural
}
