package metadata

import "sync"

// Registry holds models and request descriptors. Models come from the schema
// layer (JSON files), descriptors are registered in code at startup.
type Registry struct {
	mu          sync.RWMutex
	models      map[string]*Model
	descriptors map[string]*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{
		models:      make(map[string]*Model),
		descriptors: make(map[string]*Descriptor),
	}
}

// GetModel returns the model with the given name, or nil.
func (r *Registry) GetModel(name string) *Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[name]
}

// AllModels returns all registered models.
func (r *Registry) AllModels() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	models := make([]*Model, 0, len(r.models))
	for _, m := range r.models {
		models = append(models, m)
	}
	return models
}

// GetDescriptor returns the request descriptor with the given name, or nil.
func (r *Registry) GetDescriptor(name string) *Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.descriptors[name]
}

// LoadModels replaces all models in the registry.
func (r *Registry) LoadModels(models []*Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = make(map[string]*Model, len(models))
	for _, m := range models {
		r.models[m.Name] = m
	}
}

// Register adds a request descriptor. Last registration for a name wins.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[d.Name] = d
	return nil
}
