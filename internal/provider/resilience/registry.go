package resilience

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth represents the health status of a provider.
type ProviderHealth struct {
	// Name is the provider identifier.
	Name string

	// HasCircuitBreaker is false for clients built without a breaker.
	HasCircuitBreaker bool

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// LastSuccessAt is the timestamp of the last successful request.
	LastSuccessAt *time.Time

	// LastFailureAt is the timestamp of the last failed request.
	LastFailureAt *time.Time

	// LastError is the most recent error message, if any.
	LastError string

	// LastFailed is true when the most recent request failed.
	LastFailed bool
}

// IsUnhealthy returns true if the circuit is open or the latest request failed.
func (h *ProviderHealth) IsUnhealthy() bool {
	if h.HasCircuitBreaker && h.CircuitState == gobreaker.StateOpen {
		return true
	}
	return h.LastFailed
}

// String renders the health as a single console line.
func (h *ProviderHealth) String() string {
	status := "ok"
	if h.IsUnhealthy() {
		status = "failing"
	}

	line := fmt.Sprintf("%s: %s", h.Name, status)
	if h.HasCircuitBreaker {
		line += ", circuit " + h.CircuitState.String()
	}
	if h.LastSuccessAt != nil {
		line += ", last success " + h.LastSuccessAt.Format(time.TimeOnly)
	}
	if h.LastFailureAt != nil {
		line += ", last failure " + h.LastFailureAt.Format(time.TimeOnly)
		if h.LastError != "" {
			line += " (" + h.LastError + ")"
		}
	}
	return line
}

// Registry tracks registered provider clients and their health.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*registeredProvider
	now       func() time.Time
}

type registeredProvider struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
	lastFailed    bool
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*registeredProvider),
		now:       time.Now,
	}
}

// Register adds a client to the registry under its name. The client reports
// every request outcome to the registry from then on.
func (r *Registry) Register(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[client.Name()] = &registeredProvider{
		client: client,
	}
	client.observer = r
}

// RecordSuccess records a successful request for a provider.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := r.now()
		p.lastSuccessAt = &now
		p.lastFailed = false
	}
}

// RecordFailure records a failed request for a provider.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := r.now()
		p.lastFailureAt = &now
		p.lastFailed = true
		if err != nil {
			p.lastError = err.Error()
		}
	}
}

// GetAllHealth returns the health status of all registered providers, sorted by name.
func (r *Registry) GetAllHealth() []*ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]*ProviderHealth, 0, len(r.providers))
	for name, p := range r.providers {
		health = append(health, p.health(name))
	}
	sort.Slice(health, func(i, j int) bool {
		return health[i].Name < health[j].Name
	})
	return health
}

// StatusLines renders the health of every provider, one line each.
func (r *Registry) StatusLines() []string {
	all := r.GetAllHealth()
	lines := make([]string, 0, len(all))
	for _, h := range all {
		lines = append(lines, h.String())
	}
	return lines
}

func (p *registeredProvider) health(name string) *ProviderHealth {
	state, hasBreaker := p.client.CircuitBreakerState()
	return &ProviderHealth{
		Name:              name,
		HasCircuitBreaker: hasBreaker,
		CircuitState:      state,
		LastSuccessAt:     p.lastSuccessAt,
		LastFailureAt:     p.lastFailureAt,
		LastError:         p.lastError,
		LastFailed:        p.lastFailed,
	}
}
