package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"aihttpanalyzer/internal/core"
)

// EndpointConfig holds the model server address, the selected model and the
// enabled flag. Load, Save and Update are serialized against each other so a
// reload never lands between an update and its write to the store.
type EndpointConfig struct {
	saveMu  sync.Mutex
	mu      sync.RWMutex
	enabled bool
	baseURL string
	model   string
	store   core.PreferenceStore
}

// NewEndpointConfig creates a config with defaults and loads stored values.
// A nil store is allowed: Load then keeps the defaults and Save is a no-op.
func NewEndpointConfig(store core.PreferenceStore) *EndpointConfig {
	c := &EndpointConfig{
		enabled: core.DefaultEnabled,
		baseURL: core.DefaultBaseURL,
		model:   core.DefaultModel,
		store:   store,
	}
	c.Load()
	return c
}

// Load refreshes the in-memory values from the store. Missing keys fall back
// to defaults.
func (c *EndpointConfig) Load() {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.load()
}

func (c *EndpointConfig) load() {
	if c.store == nil {
		return
	}

	enabled := c.store.GetBool(core.PrefEnabled, core.DefaultEnabled)
	baseURL := c.store.GetString(core.PrefBaseURL, core.DefaultBaseURL)
	model := c.store.GetString(core.PrefModel, core.DefaultModel)

	c.set(core.EndpointSettings{Enabled: enabled, BaseURL: baseURL, Model: model})
}

// Save writes the in-memory values to the store.
func (c *EndpointConfig) Save() error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	return c.save(c.Snapshot())
}

// Update reloads the stored values, applies fn and writes the result back
// while holding the save lock. It returns the settings as written.
func (c *EndpointConfig) Update(fn func(*core.EndpointSettings)) (core.EndpointSettings, error) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.load()
	s := c.Snapshot()
	fn(&s)
	c.set(s)
	return s, c.save(s)
}

func (c *EndpointConfig) set(s core.EndpointSettings) {
	c.mu.Lock()
	c.enabled = s.Enabled
	c.baseURL = s.BaseURL
	c.model = s.Model
	c.mu.Unlock()
}

func (c *EndpointConfig) save(s core.EndpointSettings) error {
	if c.store == nil {
		return nil
	}

	var errs error
	if err := c.store.PutBool(core.PrefEnabled, s.Enabled); err != nil {
		errs = errors.Join(errs, fmt.Errorf("save %s: %w", core.PrefEnabled, err))
	}
	if err := c.store.PutString(core.PrefBaseURL, s.BaseURL); err != nil {
		errs = errors.Join(errs, fmt.Errorf("save %s: %w", core.PrefBaseURL, err))
	}
	if err := c.store.PutString(core.PrefModel, s.Model); err != nil {
		errs = errors.Join(errs, fmt.Errorf("save %s: %w", core.PrefModel, err))
	}
	return errs
}

// Snapshot returns a copy of the current in-memory values.
func (c *EndpointConfig) Snapshot() core.EndpointSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return core.EndpointSettings{Enabled: c.enabled, BaseURL: c.baseURL, Model: c.model}
}

func (c *EndpointConfig) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

func (c *EndpointConfig) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

// BaseURL returns the stored base URL as-is; a trailing slash may remain.
func (c *EndpointConfig) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

func (c *EndpointConfig) SetBaseURL(baseURL string) {
	c.mu.Lock()
	c.baseURL = baseURL
	c.mu.Unlock()
}

func (c *EndpointConfig) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

func (c *EndpointConfig) SetModel(model string) {
	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
}

// NormalizeBaseURL strips one trailing slash so paths can be appended directly.
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/")
}
