package inject

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-yaml"
)

// Effect is a named, reusable CSS preset applied as its own layer.
type Effect struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	CSS  string `json:"css" yaml:"css"`
}

//go:embed effects.yaml
var builtinYAML []byte

type presetFile struct {
	Effects []Effect `yaml:"effects"`
}

// Registry holds the effect presets in catalog order.
type Registry struct {
	effects map[string]Effect
	order   []string
}

// NewRegistry loads the embedded built-in presets.
func NewRegistry() (*Registry, error) {
	var file presetFile
	if err := yaml.Unmarshal(builtinYAML, &file); err != nil {
		return nil, fmt.Errorf("parse builtin effects: %w", err)
	}

	r := &Registry{effects: make(map[string]Effect, len(file.Effects))}
	for _, e := range file.Effects {
		if e.ID == "" || e.CSS == "" {
			return nil, fmt.Errorf("effect %q: id and css required", e.ID)
		}
		r.effects[e.ID] = e
		r.order = append(r.order, e.ID)
	}
	return r, nil
}

// Get returns an effect by ID.
func (r *Registry) Get(id string) (Effect, bool) {
	e, ok := r.effects[id]
	return e, ok
}

// List returns all effects in registry order.
func (r *Registry) List() []Effect {
	out := make([]Effect, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.effects[id])
	}
	return out
}
