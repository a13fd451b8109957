package models

// Health is the liveness and readiness document.
type Health struct {
	Status    HealthStatus `json:"status"`
	Version   string       `json:"version,omitempty"`
	BuildTime string       `json:"buildTime,omitempty"`
	Time      Timestamp    `json:"time"`
	// Failing maps each unreachable subsystem to its error.
	Failing map[string]string `json:"failing,omitempty"`
}

// SystemStatus is the operator status page. It reports OK or DEGRADED, never
// FAIL: assessments keep running on fallbacks while providers are down.
type SystemStatus struct {
	Status         HealthStatus      `json:"status"`
	Version        string            `json:"version,omitempty"`
	Time           Timestamp         `json:"time"`
	ActiveSessions int               `json:"activeSessions"`
	Subsystems     []SubsystemStatus `json:"subsystems"`
	Providers      []ProviderStatus  `json:"providers"`
	Degradations   []Degradation     `json:"degradations"`
}

// SubsystemStatus is the result of pinging a backing store.
type SubsystemStatus struct {
	Name      string       `json:"name"`
	Status    HealthStatus `json:"status"`
	LatencyMs int64        `json:"latencyMs"`
	Error     string       `json:"error,omitempty"`
}

// ProviderStatus summarizes an upstream provider's circuit.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	BreakerState  string       `json:"breakerState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	LastError     string       `json:"lastError,omitempty"`
}

// Degradation is an enabled feature flag that lowers assessment fidelity.
type Degradation struct {
	Flag        string `json:"flag"`
	Description string `json:"description"`
}
