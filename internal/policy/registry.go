package policy

import (
	"fmt"
	"sort"
)

// Registry holds all known game presets.
type Registry struct {
	policies map[string]AppPolicy
	goos     string
}

// NewRegistry creates a registry with all default presets for the running OS.
func NewRegistry() *Registry {
	return NewRegistryWithPolicies("", NewSteamPolicy(), NewDota2Policy())
}

// NewRegistryWithPolicies creates a registry for goos with custom policies (for testing).
func NewRegistryWithPolicies(goos string, policies ...AppPolicy) *Registry {
	r := &Registry{
		policies: make(map[string]AppPolicy),
		goos:     goos,
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

// Get returns the preset with the given ID.
func (r *Registry) Get(id string) (Preset, error) {
	p, ok := r.policies[id]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %v)", id, r.List())
	}
	return ToPreset(p, r.goos), nil
}

// GetAll returns all presets sorted by ID.
func (r *Registry) GetAll() []Preset {
	ids := r.List()
	result := make([]Preset, 0, len(ids))
	for _, id := range ids {
		result = append(result, ToPreset(r.policies[id], r.goos))
	}
	return result
}

// List returns all preset IDs, sorted.
func (r *Registry) List() []string {
	ids := make([]string, 0, len(r.policies))
	for id := range r.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
