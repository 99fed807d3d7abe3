package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spendlens/spendlens/internal/domain/cost"
	apperrors "github.com/spendlens/spendlens/internal/pkg/errors"
)

// Adapter fetches raw billing rows and raw resource inventory for one
// provider. Implementations return provider-shaped rows untouched; all
// normalization happens downstream. Fetch must respect ctx cancellation.
type Adapter interface {
	Provider() string
	Fetch(ctx context.Context, window cost.Window) (*RawBatch, error)
}

// Status describes whether a provider can be invoked at all.
type Status struct {
	Provider      string   `json:"provider"`
	Installed     bool     `json:"installed"`
	Authenticated bool     `json:"authenticated"`
	Identifiers   []string `json:"identifiers,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// StatusProbe reports provider availability without issuing billing calls.
type StatusProbe interface {
	Status(ctx context.Context, provider string) Status
}

// Registry maps provider ids to their adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

// Register adds or replaces an adapter.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Provider()] = a
}

// Get returns the adapter for a provider id.
func (r *Registry) Get(provider string) (Adapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, apperrors.NotConfigured(provider,
			fmt.Sprintf("no adapter registered (known: %s)", strings.Join(r.Names(), ", ")))
	}
	return a, nil
}

// Names returns the registered provider ids, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrorKind maps a fetch error to the wire-level kind recorded in
// governance issues.
func ErrorKind(err error) string {
	switch apperrors.Code(err) {
	case apperrors.ErrCodeNotConfigured:
		return "not_configured"
	case apperrors.ErrCodeAuthFailed:
		return "auth_failed"
	case apperrors.ErrCodeTimeout:
		return "timeout"
	case apperrors.ErrCodeRateLimited:
		return "rate_limited"
	case apperrors.ErrCodeEmpty:
		return "empty"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
