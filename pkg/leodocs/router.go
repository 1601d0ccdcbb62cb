package leodocs

import (
	"fmt"
	"sort"
	"strings"
)

// Router picks a template variant from a discriminant such as the meeting
// modality. Lookups ignore case and surrounding space.
type Router struct {
	routes   map[string]string
	fallback string
}

// NewRouter creates a router. fallback is used when no route matches; an
// empty fallback makes unmatched discriminants an error.
func NewRouter(routes map[string]string, fallback string) *Router {
	r := &Router{routes: make(map[string]string, len(routes)), fallback: fallback}
	for k, v := range routes {
		r.routes[normalizeDiscriminant(k)] = v
	}
	return r
}

func normalizeDiscriminant(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Route returns the template identifier for a discriminant.
func (r *Router) Route(discriminant string) (string, error) {
	if id, ok := r.routes[normalizeDiscriminant(discriminant)]; ok && id != "" {
		return id, nil
	}
	if r.fallback != "" {
		return r.fallback, nil
	}
	return "", fmt.Errorf("no template for %q: %w", discriminant, ErrTemplateNotFound)
}

// Discriminants lists the configured discriminants in sorted order.
func (r *Router) Discriminants() []string {
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
