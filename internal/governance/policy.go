package governance

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spendlens/spendlens/internal/domain/analysis"
	"github.com/spendlens/spendlens/internal/domain/cost"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
	"github.com/spendlens/spendlens/internal/pkg/logger"
)

// Policy caps spend for a slice of the records. Scope is either "service"
// (group by service name) or "tag:<key>" (group by that tag's value). Match
// and Exclude filter the group values; empty Match admits every value.
type Policy struct {
	Name    string   `yaml:"name"`
	Scope   string   `yaml:"scope"`
	Match   []string `yaml:"match,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
	MaxCost float64  `yaml:"max_cost"`
	Action  string   `yaml:"action,omitempty"`
}

type policyFile struct {
	Policies []Policy `yaml:"policies"`
}

// Engine evaluates spend policies against normalized records.
type Engine struct {
	policies []Policy
	logger   *logger.Logger
}

// NewEngine builds an engine over the given policies.
func NewEngine(policies []Policy, log *logger.Logger) *Engine {
	return &Engine{policies: policies, logger: log}
}

// LoadFile reads a YAML policy file and builds an engine. A missing path
// yields an engine with no policies.
func LoadFile(path string, log *logger.Logger) (*Engine, error) {
	if path == "" {
		return NewEngine(nil, log), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeBadRequest,
			fmt.Sprintf("read policy file %s", path), http.StatusBadRequest)
	}
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeBadRequest,
			fmt.Sprintf("parse policy file %s", path), http.StatusBadRequest)
	}
	for i, p := range file.Policies {
		if err := validate(p); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeBadRequest,
				fmt.Sprintf("policy %d (%s) invalid", i, p.Name), http.StatusBadRequest)
		}
	}
	log.WithFields(map[string]interface{}{
		"path":     path,
		"policies": len(file.Policies),
	}).Info("loaded governance policies")
	return NewEngine(file.Policies, log), nil
}

func validate(p Policy) error {
	if p.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	if p.Scope != "service" && !strings.HasPrefix(p.Scope, "tag:") {
		return fmt.Errorf("scope must be \"service\" or \"tag:<key>\", got %q", p.Scope)
	}
	if p.MaxCost <= 0 {
		return fmt.Errorf("max_cost must be positive, got %v", p.MaxCost)
	}
	return nil
}

// Evaluate groups record amounts by each policy's scope and reports every
// group whose total exceeds the cap. Violations are ordered by policy, then
// by scope value.
func (e *Engine) Evaluate(records []cost.Record) []analysis.GovernanceIssue {
	var issues []analysis.GovernanceIssue
	for _, p := range e.policies {
		issues = append(issues, e.evaluateOne(p, records)...)
	}
	return issues
}

func (e *Engine) evaluateOne(p Policy, records []cost.Record) []analysis.GovernanceIssue {
	totals := make(map[string]float64)
	for _, rec := range records {
		value, ok := scopeValue(p.Scope, rec)
		if !ok || !admitted(p, value) {
			continue
		}
		totals[value] += rec.Amount
	}

	values := make([]string, 0, len(totals))
	for v := range totals {
		values = append(values, v)
	}
	sort.Strings(values)

	var issues []analysis.GovernanceIssue
	for _, v := range values {
		if totals[v] <= p.MaxCost {
			continue
		}
		issues = append(issues, analysis.GovernanceIssue{
			Kind:   analysis.IssuePolicyViolation,
			Policy: p.Name,
			Scope:  v,
			Actual: totals[v],
			Detail: fmt.Sprintf("%s spend %.2f exceeds cap %.2f", v, totals[v], p.MaxCost),
		})
	}
	return issues
}

func scopeValue(scope string, rec cost.Record) (string, bool) {
	if scope == "service" {
		return rec.Service, rec.Service != ""
	}
	key := strings.TrimPrefix(scope, "tag:")
	v, ok := rec.Tags[key]
	return v, ok && v != ""
}

func admitted(p Policy, value string) bool {
	for _, ex := range p.Exclude {
		if ex == value {
			return false
		}
	}
	if len(p.Match) == 0 {
		return true
	}
	for _, m := range p.Match {
		if m == value {
			return true
		}
	}
	return false
}
