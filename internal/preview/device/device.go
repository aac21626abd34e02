// Package device holds the simulated-viewport catalog: built-in profiles
// embedded at build time plus user-defined custom sizes.
package device

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/goccy/go-yaml"
)

// Kind classifies a profile by device class.
type Kind string

const (
	KindMobile  Kind = "mobile"
	KindTablet  Kind = "tablet"
	KindLaptop  Kind = "laptop"
	KindDesktop Kind = "desktop"
	KindCustom  Kind = "custom"
)

// Profile is a named width x height pair simulating a device.
type Profile struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// Validate checks profile dimensions.
func (p Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile id required")
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("profile %s: width and height must be positive", p.ID)
	}
	return nil
}

//go:embed profiles.yaml
var builtinYAML []byte

type catalogFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// Catalog tracks built-in and custom profiles, preserving insertion order.
type Catalog struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	order    []string
	builtin  map[string]bool
}

// NewCatalog loads the embedded built-in profiles.
func NewCatalog() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(builtinYAML, &file); err != nil {
		return nil, fmt.Errorf("parse builtin profiles: %w", err)
	}

	c := &Catalog{
		profiles: make(map[string]Profile, len(file.Profiles)),
		builtin:  make(map[string]bool, len(file.Profiles)),
	}
	for _, p := range file.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		c.profiles[p.ID] = p
		c.order = append(c.order, p.ID)
		c.builtin[p.ID] = true
	}
	return c, nil
}

// Get returns a profile by ID.
func (c *Catalog) Get(id string) (Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[id]
	return p, ok
}

// List returns all profiles in catalog order.
func (c *Catalog) List() []Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Profile, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.profiles[id])
	}
	return out
}

// Add registers a custom profile. Built-in IDs cannot be overwritten.
func (c *Catalog) Add(p Profile) error {
	p.Kind = KindCustom
	if err := p.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.builtin[p.ID] {
		return fmt.Errorf("profile %s is built-in", p.ID)
	}
	if _, exists := c.profiles[p.ID]; !exists {
		c.order = append(c.order, p.ID)
	}
	c.profiles[p.ID] = p
	return nil
}

// Remove deletes a custom profile. Built-ins are protected.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.builtin[id] {
		return fmt.Errorf("profile %s is built-in", id)
	}
	if _, exists := c.profiles[id]; !exists {
		return fmt.Errorf("profile %s not found", id)
	}
	delete(c.profiles, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Customs returns only user-defined profiles, for persistence.
func (c *Catalog) Customs() []Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Profile
	for _, id := range c.order {
		if !c.builtin[id] {
			out = append(out, c.profiles[id])
		}
	}
	return out
}
