package mapping

import (
	"reflect"
	"sync"
)

// Registry memoizes one Map per entity type. The first request for a type
// derives its Map; every later request returns the same one. The zero value
// is ready to use.
//
// A Registry is handed explicitly to whatever constructs trackers, readers,
// and writers; there is deliberately no package-level default, so test
// isolation is just a matter of using a fresh Registry.
type Registry struct {
	mu   sync.Mutex
	maps map[reflect.Type]interface{}
}

// NewRegistry creates an empty Registry. &Registry{} works just as well.
func NewRegistry() *Registry {
	return &Registry{}
}

// For returns the Map for entity type E from the registry, deriving and
// caching it on first use. Derivation fails if E is not a struct type (or
// pointer to one) or lacks an identifier field.
func For[E any](reg *Registry) (*Map[E], error) {
	var zero E
	t := reflect.TypeOf(&zero).Elem()

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.maps == nil {
		reg.maps = make(map[reflect.Type]interface{})
	}
	if cached, ok := reg.maps[t]; ok {
		return cached.(*Map[E]), nil
	}

	m, err := newMap[E]()
	if err != nil {
		return nil, err
	}
	reg.maps[t] = m
	return m, nil
}
