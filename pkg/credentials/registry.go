// pkg/credentials/registry.go
package credentials

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// TenantConfig holds one microsite's upstream credentials. Loaded once at
// startup; immutable afterwards.
type TenantConfig struct {
	ConfigID    int
	MicrositeID string
	Username    string
	Password    string
}

var ErrConfigNotFound = errors.New("tenant config not found")

// Registry resolves configured tenant slots. Slot 1 reads the unsuffixed
// TRAVEL_COMPOSITOR_* variables, slots 2..4 the _N suffixed ones. A slot
// missing any of its three values is excluded rather than an error.
type Registry struct {
	byID  map[int]TenantConfig
	order []int
}

const maxEnvSlots = 4

func FromEnv(log *zap.SugaredLogger) *Registry {
	var configs []TenantConfig
	for slot := 1; slot <= maxEnvSlots; slot++ {
		suffix := ""
		if slot > 1 {
			suffix = fmt.Sprintf("_%d", slot)
		}
		c := TenantConfig{
			ConfigID:    slot,
			Username:    os.Getenv("TRAVEL_COMPOSITOR_USERNAME" + suffix),
			Password:    os.Getenv("TRAVEL_COMPOSITOR_PASSWORD" + suffix),
			MicrositeID: os.Getenv("TRAVEL_COMPOSITOR_MICROSITE_ID" + suffix),
		}
		if !c.complete() {
			continue
		}
		configs = append(configs, c)
	}
	if extra, err := loadTenantsFile(os.Getenv("TRAVEL_COMPOSITOR_TENANTS_FILE"), len(configs)); err != nil {
		log.Warnw("tenants file", "err", err)
	} else {
		configs = append(configs, extra...)
	}
	reg := NewStatic(configs...)
	log.Infow("tenant registry loaded", "slots", reg.order)
	return reg
}

// NewStatic builds a registry from explicit configs. Incomplete entries are
// dropped, matching the env loading behavior.
func NewStatic(configs ...TenantConfig) *Registry {
	r := &Registry{byID: map[int]TenantConfig{}}
	for _, c := range configs {
		if !c.complete() {
			continue
		}
		if _, dup := r.byID[c.ConfigID]; dup {
			continue
		}
		r.byID[c.ConfigID] = c
		r.order = append(r.order, c.ConfigID)
	}
	sort.Ints(r.order)
	return r
}

func (c TenantConfig) complete() bool {
	return c.Username != "" && c.Password != "" && c.MicrositeID != ""
}

func (r *Registry) Get(configID int) (TenantConfig, error) {
	if c, ok := r.byID[configID]; ok {
		return c, nil
	}
	return TenantConfig{}, ErrConfigNotFound
}

// List returns configured slot ids in ascending order.
func (r *Registry) List() []int {
	out := make([]int, len(r.order))
	copy(out, r.order)
	return out
}

// All returns configs in slot order.
func (r *Registry) All() []TenantConfig {
	out := make([]TenantConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

type tenantsFile struct {
	Tenants []struct {
		MicrositeID string `yaml:"microsite_id"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
	} `yaml:"tenants"`
}

// loadTenantsFile reads extra tenants from a YAML file. File entries occupy
// slots after the env slots and obey the same completeness rule.
func loadTenantsFile(path string, envCount int) ([]TenantConfig, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f tenantsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	var out []TenantConfig
	next := maxEnvSlots + 1
	if envCount > maxEnvSlots {
		next = envCount + 1
	}
	for _, t := range f.Tenants {
		c := TenantConfig{ConfigID: next, MicrositeID: t.MicrositeID, Username: t.Username, Password: t.Password}
		if !c.complete() {
			continue
		}
		out = append(out, c)
		next++
	}
	return out, nil
}
