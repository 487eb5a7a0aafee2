package retrieval

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Registry maps each retrieval method to the port its service listens on.
// It must match the deployed retrieval services.
type Registry map[Method]int

// DefaultRegistry returns the standard deployment's method to port table.
func DefaultRegistry() Registry {
	return Registry{
		MethodBM25:        6030,
		MethodDenseSmall:  6002,
		MethodDenseLarge:  6001,
		MethodHybridSmall: 6024,
		MethodHybridLarge: 6025,
	}
}

// WithOverrides returns a copy of r with the given method to port entries
// replaced or added. Ports outside 1-65535 are rejected.
func (r Registry) WithOverrides(overrides map[string]int) (Registry, error) {
	out := maps.Clone(r)
	if out == nil {
		out = Registry{}
	}

	for name, port := range overrides {
		if name == "" {
			return nil, fmt.Errorf("port override has an empty method name")
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid port %d for retrieval method %q", port, name)
		}
		out[Method(name)] = port
	}
	return out, nil
}

// Port returns the port for the named method. Unknown methods yield an error
// wrapping ErrUnknownMethod that lists the valid options.
func (r Registry) Port(method string) (int, error) {
	port, ok := r[Method(method)]
	if !ok {
		return 0, fmt.Errorf("%w: %q. Valid options: [%s]",
			ErrUnknownMethod, method, strings.Join(r.Names(), ", "))
	}
	return port, nil
}

// Names returns the registered method names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for m := range r {
		names = append(names, string(m))
	}
	slices.Sort(names)
	return names
}
