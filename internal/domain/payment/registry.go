package payment

import (
	"fmt"
	"sort"
	"strings"
)

// Registry selects a Gateway by paymentMethod. Adding a provider is a Register call.
type Registry struct {
	byName   map[string]Gateway
	byMethod map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{
		byName:   make(map[string]Gateway, len(gateways)),
		byMethod: make(map[string]Gateway),
	}
	for _, g := range gateways {
		r.Register(g)
	}
	return r
}

// Register adds g, replacing any gateway that already owns the same name or methods.
func (r *Registry) Register(g Gateway) {
	if g == nil {
		return
	}
	r.byName[g.Name()] = g
	for _, m := range g.Methods() {
		r.byMethod[strings.ToLower(m)] = g
	}
}

// Resolve returns the gateway settling method. Methods are matched exactly first,
// then by their "<gateway>-" prefix.
func (r *Registry) Resolve(method string) (Gateway, error) {
	m := strings.ToLower(strings.TrimSpace(method))
	if m == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedMethod)
	}
	if g, ok := r.byMethod[m]; ok {
		return g, nil
	}
	prefix, _, _ := strings.Cut(m, "-")
	if g, ok := r.byName[prefix]; ok && prefix != m {
		return g, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
}

// Lookup returns the gateway registered under name.
func (r *Registry) Lookup(name string) (Gateway, bool) {
	g, ok := r.byName[strings.ToLower(name)]
	return g, ok
}

// Names returns registered gateway names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Method describes one selectable payment method.
type Method struct {
	Method    string `json:"method"`
	Gateway   string `json:"gateway"`
	Synthetic bool   `json:"synthetic"`
}

func (r *Registry) Methods() []Method {
	out := make([]Method, 0, len(r.byMethod))
	for m, g := range r.byMethod {
		out = append(out, Method{Method: m, Gateway: g.Name(), Synthetic: g.Synthetic()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}
