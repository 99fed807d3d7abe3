package cli

import (
	"fmt"

	"github.com/spendlens/spendlens/internal/domain/analysis"
)

// renderResult prints an analysis result. Table mode prints the headline
// blocks a terminal reader cares about; json and yaml dump the whole
// document.
func renderResult(result *analysis.Result, narratives []string) error {
	if getOutputFormat() != "table" {
		out := struct {
			*analysis.Result
			Insights []string `json:"insights,omitempty"`
		}{Result: result, Insights: narratives}
		return printOutput(out)
	}

	fmt.Printf("Provider: %s  Window: %s  Period: %s\n",
		result.Meta.Provider, result.Meta.Window, result.Meta.Period)
	currency := result.Summary.Currency
	if currency == "" {
		currency = "?"
	}
	fmt.Printf("Total: %s %s  Resources: %d  Risk: %.1f\n\n",
		money(result.Summary.TotalCost), currency,
		result.Summary.ResourceCount, result.Summary.RiskScore)

	if len(result.CostDrivers) > 0 {
		t := NewTable("SERVICE", "COST")
		for i, d := range result.CostDrivers {
			if i == 10 {
				break
			}
			t.AddRow(truncate(d.Service, 40), money(d.Cost))
		}
		t.Render()
		fmt.Println()
	}

	if len(result.Anomalies) > 0 {
		t := NewTable("DATE", "TYPE", "SEVERITY", "AMOUNT", "BASELINE")
		for _, a := range result.Anomalies {
			t.AddRow(a.Date.Format("2006-01-02"), a.Type,
				formatSeverity(a.Severity), money(a.Amount), money(a.Baseline))
		}
		t.Render()
		fmt.Println()
	}

	if len(result.Forecast) > 0 {
		t := NewTable("MONTH", "PREDICTED", "LOW", "HIGH")
		for _, f := range result.Forecast {
			t.AddRow(f.Month, money(f.PredictedCost),
				money(f.ConfidenceLow), money(f.ConfidenceHigh))
		}
		t.Render()
		fmt.Println()
	}

	if len(result.WasteFindings) > 0 {
		t := NewTable("RESOURCE", "TYPE", "PROVIDER", "MONTHLY", "REASONS")
		for _, w := range result.WasteFindings {
			t.AddRow(truncate(w.ResourceName, 32), w.ResourceType, w.Provider,
				money(w.MonthlyCost), fmt.Sprintf("%v", w.Reasons))
		}
		t.Render()
		fmt.Println()
	}

	if len(result.GovernanceIssues) > 0 {
		t := NewTable("KIND", "POLICY", "SCOPE", "ACTUAL", "DETAIL")
		for _, is := range result.GovernanceIssues {
			actual := ""
			if is.Actual != 0 {
				actual = money(is.Actual)
			}
			t.AddRow(is.Kind, is.Policy, is.Scope, actual, truncate(is.Detail, 60))
		}
		t.Render()
		fmt.Println()
	}

	if result.Executive != nil {
		e := result.Executive
		fmt.Printf("Executive: risk %.1f (%s)  waste %.1f%%  anomalies %d  violations %d  trend %+.1f%%\n",
			e.RiskScore, e.ExposureCategory, e.WastePercentage,
			e.AnomalyCount, e.GovernanceViolations, e.ForecastTrendPct)
	}

	for _, line := range narratives {
		fmt.Println("* " + line)
	}
	for _, warn := range result.Warnings {
		fmt.Println("warning: " + warn)
	}
	return nil
}

func checkDays(days int) error {
	if days < 1 || days > 365 {
		return fmt.Errorf("days must be between 1 and 365, got %d", days)
	}
	return nil
}
