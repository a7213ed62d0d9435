package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type ModelKind string

const (
	KindVision ModelKind = "vision"
	KindText   ModelKind = "text"
	KindAudio  ModelKind = "audio"
)

// Model is one catalog entry: a short id mapped to the provider's model name.
type Model struct {
	ID       string    `yaml:"id"`
	Provider string    `yaml:"provider"`
	Name     string    `yaml:"name"`
	Label    string    `yaml:"label,omitempty"`
	Kind     ModelKind `yaml:"kind"`
	Enabled  *bool     `yaml:"enabled,omitempty"`
}

func (m Model) enabled() bool { return m.Enabled == nil || *m.Enabled }

type catalogFile struct {
	Models []Model `yaml:"models"`
}

// Catalog resolves preset model ids. Unknown ids pass through unchanged.
type Catalog struct {
	models map[string]Model
}

func builtinModels() []Model {
	return []Model{
		{ID: "scout", Provider: "groq", Name: "meta-llama/llama-4-scout-17b-16e-instruct", Label: "Fast", Kind: KindVision},
		{ID: "maverick", Provider: "groq", Name: "meta-llama/llama-4-maverick-17b-128e-instruct", Label: "Accurate", Kind: KindVision},
		{ID: "gemini-flash-lite", Provider: "google", Name: "gemini-flash-lite-latest", Label: "More Accurate", Kind: KindVision},
		{ID: "gemini-flash", Provider: "google", Name: "gemini-flash-latest", Label: "Very Accurate", Kind: KindVision},
		{ID: "fast_text", Provider: "groq", Name: "openai/gpt-oss-20b", Label: "Super Fast", Kind: KindText},
		{ID: "text_fast_120b", Provider: "groq", Name: "openai/gpt-oss-120b", Label: "Fast", Kind: KindText},
		{ID: "text_accurate_kimi", Provider: "groq", Name: "moonshotai/kimi-k2-instruct-0905", Label: "Accurate", Kind: KindText},
		{ID: "text_gemini_flash", Provider: "google", Name: "gemini-flash-latest", Label: "Very Accurate", Kind: KindText},
		{ID: "gemini-audio", Provider: "google", Name: "gemini-flash-lite-latest", Label: "More Accurate", Kind: KindAudio},
		{ID: "gemini-audio-flash", Provider: "google", Name: "gemini-flash-latest", Label: "Very Accurate", Kind: KindAudio},
	}
}

// NewCatalog returns the built-in catalog.
func NewCatalog() *Catalog {
	c := &Catalog{models: make(map[string]Model)}
	for _, m := range builtinModels() {
		c.models[m.ID] = m
	}
	return c
}

// LoadCatalog returns the built-in catalog with entries from path merged over it.
// An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	c := NewCatalog()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model catalog %s: %w", path, err)
	}
	if err := c.Merge(data); err != nil {
		return nil, fmt.Errorf("parse model catalog %s: %w", path, err)
	}
	return c, nil
}

// Merge overlays YAML entries. An entry with enabled: false removes the id.
func (c *Catalog) Merge(data []byte) error {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return err
	}
	for i, m := range f.Models {
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return fmt.Errorf("models[%d]: id is required", i)
		}
		if !m.enabled() {
			delete(c.models, m.ID)
			continue
		}
		if base, ok := c.models[m.ID]; ok {
			if m.Name == "" {
				m.Name = base.Name
			}
			if m.Provider == "" {
				m.Provider = base.Provider
			}
			if m.Kind == "" {
				m.Kind = base.Kind
			}
			if m.Label == "" {
				m.Label = base.Label
			}
		}
		if m.Name == "" {
			return fmt.Errorf("models[%d] %s: name is required", i, m.ID)
		}
		switch m.Kind {
		case KindVision, KindText, KindAudio:
		case "":
			m.Kind = KindText
		default:
			return fmt.Errorf("models[%d] %s: unknown kind %q", i, m.ID, m.Kind)
		}
		c.models[m.ID] = m
	}
	return nil
}

// Lookup returns the entry registered under id.
func (c *Catalog) Lookup(id string) (Model, bool) {
	if c == nil {
		return Model{}, false
	}
	m, ok := c.models[id]
	return m, ok
}

// ResolveModel maps a preset id to the full model name and provider.
func (c *Catalog) ResolveModel(id string) (string, string, bool) {
	m, ok := c.Lookup(id)
	if !ok {
		return "", "", false
	}
	return m.Name, m.Provider, true
}

// Models lists entries of the given kind sorted by id; an empty kind lists all.
func (c *Catalog) Models(kind ModelKind) []Model {
	var out []Model
	for _, m := range c.models {
		if kind == "" || m.Kind == kind {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
