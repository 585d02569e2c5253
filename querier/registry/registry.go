package registry

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/janhoon/vizor/querier/model"
)

// Factory builds an adapter from one provisioned descriptor.
type Factory func(ds model.DataSource) (model.Adapter, error)

var (
	factoriesMtx sync.RWMutex
	factories    = map[string]Factory{}
)

// RegisterType makes a datasource type constructible. New backends hook in
// here instead of branching inside shared code. Meant to run at startup.
func RegisterType(dsType string, f Factory) {
	factoriesMtx.Lock()
	defer factoriesMtx.Unlock()
	factories[dsType] = f
}

// Types returns the registered datasource types, sorted.
func Types() []string {
	factoriesMtx.RLock()
	defer factoriesMtx.RUnlock()
	out := maps.Keys(factories)
	slices.Sort(out)
	return out
}

// Registry holds provisioned datasources and their adapters. Adapters are
// built on first use and cached, they carry immutable configuration only.
type Registry struct {
	mtx      sync.RWMutex
	sources  map[string]model.DataSource
	order    []string
	adapters map[string]model.Adapter
}

// New indexes the descriptors by name. The first descriptor wins when two
// share a name.
func New(sources []model.DataSource) *Registry {
	r := &Registry{
		sources:  make(map[string]model.DataSource, len(sources)),
		adapters: map[string]model.Adapter{},
	}
	for _, ds := range sources {
		if _, ok := r.sources[ds.Name]; ok {
			continue
		}
		r.sources[ds.Name] = ds
		r.order = append(r.order, ds.Name)
	}
	return r
}

// List returns the descriptors in provisioning order.
func (r *Registry) List() []model.DataSource {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	out := make([]model.DataSource, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sources[name])
	}
	return out
}

func (r *Registry) Get(name string) (model.DataSource, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	ds, ok := r.sources[name]
	return ds, ok
}

// Adapter returns the adapter for name, building it on first use.
func (r *Registry) Adapter(name string) (model.Adapter, error) {
	r.mtx.RLock()
	a, ok := r.adapters[name]
	r.mtx.RUnlock()
	if ok {
		return a, nil
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if a, ok := r.adapters[name]; ok {
		return a, nil
	}
	ds, ok := r.sources[name]
	if !ok {
		return nil, &model.NotFoundError{Name: name}
	}
	factoriesMtx.RLock()
	f, ok := factories[ds.Type]
	factoriesMtx.RUnlock()
	if !ok {
		return nil, errors.Errorf("no adapter registered for datasource type %q", ds.Type)
	}
	a, err := f(ds)
	if err != nil {
		return nil, err
	}
	r.adapters[name] = a
	return a, nil
}

// TestConnection probes one datasource by name.
func (r *Registry) TestConnection(ctx context.Context, name string) error {
	a, err := r.Adapter(name)
	if err != nil {
		return err
	}
	return a.TestConnection(ctx)
}
