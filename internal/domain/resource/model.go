package resource

// Resource represents a provisioned cloud resource enriched with cost and
// idle signals. ID is unique within a provider only; cross-provider
// collections key by (Provider, ID).
type Resource struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Provider     string   `json:"provider"`
	Region       string   `json:"region,omitempty"`
	State        string   `json:"state,omitempty"`
	ExternalIP   string   `json:"external_ip,omitempty"`
	IdleSignal   float64  `json:"idle_signal,omitempty"` // provider-supplied idleness indicator, 0-100
	Cost30d      float64  `json:"cost_30d,omitempty"`
	IdleScore    int      `json:"idle_score,omitempty"`
	WasteReasons []string `json:"waste_reasons,omitempty"`
}

// Key identifies a resource across providers.
type Key struct {
	Provider string
	ID       string
}

// Key returns the cross-provider identity of the resource.
func (r Resource) Key() Key {
	return Key{Provider: r.Provider, ID: r.ID}
}

// Resource types
const (
	TypeComputeInstance = "compute-instance"
	TypeStorageBucket   = "storage-bucket"
	TypeDatabase        = "database"
)

// Resource states
const (
	StateRunning    = "running"
	StateStopped    = "stopped"
	StateTerminated = "terminated"
	StateUnknown    = "unknown"
)

// Waste rule names, emitted in Resource.WasteReasons in the order the rules
// are evaluated.
const (
	RuleRunning      = "running"
	RuleNoExternalIP = "no-external-ip"
	RuleIdle         = "idle"
	RuleHighCost     = "high-cost"
	RuleVeryHighCost = "very-high-cost"
)
