package llm

import "sort"

// Registry holds configured providers keyed by name.
type Registry struct {
	providers map[string]Provider
	fallback  string
}

// NewRegistry builds a registry over the given providers. fallback names the
// provider served for empty or unrecognized lookups.
func NewRegistry(fallback string, providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers)), fallback: fallback}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider registered under name. Empty or unknown names
// resolve to the fallback provider.
func (r *Registry) Get(name string) Provider {
	if p, ok := r.providers[name]; ok {
		return p
	}
	return r.providers[r.fallback]
}

// Fallback returns the name of the fallback provider.
func (r *Registry) Fallback() string { return r.fallback }

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
