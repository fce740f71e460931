package policy

import (
	"fmt"
	"sort"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

// Registry holds all watched-application policies.
type Registry struct {
	policies map[string]AppPolicy
}

// NewRegistry creates a registry with all default policies, plus a custom
// policy when extra patterns are configured.
func NewRegistry(extraPatterns ...string) *Registry {
	r := &Registry{
		policies: make(map[string]AppPolicy),
	}

	r.Register(NewZoomPolicy())
	r.Register(NewTeamsPolicy())

	if custom := NewCustomPolicy(extraPatterns); len(custom.ProcessPatterns()) > 0 {
		r.Register(custom)
	}

	return r
}

// NewRegistryWithPolicies creates a registry with custom policies (for testing).
func NewRegistryWithPolicies(policies ...AppPolicy) *Registry {
	r := &Registry{
		policies: make(map[string]AppPolicy),
	}
	for _, p := range policies {
		r.Register(p)
	}
	return r
}

// Register adds a policy to the registry.
func (r *Registry) Register(p AppPolicy) {
	r.policies[p.ID()] = p
}

// Get returns a policy by ID.
func (r *Registry) Get(id string) (AppPolicy, bool) {
	p, ok := r.policies[id]
	return p, ok
}

// GetAll returns all registered policies ordered by ID.
func (r *Registry) GetAll() []AppPolicy {
	result := make([]AppPolicy, 0, len(r.policies))
	for _, id := range r.List() {
		result = append(result, r.policies[id])
	}
	return result
}

// List returns all policy IDs, sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.policies))
	for id := range r.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RegistryPolicyStore adapts Registry to implement domain.PolicyStore interface.
type RegistryPolicyStore struct {
	registry *Registry
}

// NewPolicyStore creates a PolicyStore backed by the default Registry.
func NewPolicyStore(extraPatterns ...string) domain.PolicyStore {
	return &RegistryPolicyStore{registry: NewRegistry(extraPatterns...)}
}

// NewPolicyStoreFromRegistry wraps an existing registry.
func NewPolicyStoreFromRegistry(r *Registry) domain.PolicyStore {
	return &RegistryPolicyStore{registry: r}
}

func (s *RegistryPolicyStore) GetAll() []domain.WatchPolicy {
	policies := s.registry.GetAll()
	result := make([]domain.WatchPolicy, len(policies))
	for i, p := range policies {
		result[i] = ToPolicy(p)
	}
	return result
}

func (s *RegistryPolicyStore) GetByID(id string) (*domain.WatchPolicy, error) {
	p, ok := s.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("policy not found: %s", id)
	}
	policy := ToPolicy(p)
	return &policy, nil
}

func (s *RegistryPolicyStore) List() []string {
	return s.registry.List()
}

// Ensure RegistryPolicyStore implements domain.PolicyStore.
var _ domain.PolicyStore = (*RegistryPolicyStore)(nil)
