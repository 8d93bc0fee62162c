// Package icp loads named Ideal Customer Profile definitions: the Apollo-style
// filters that drive ingestion and the weights that drive fit scoring.
package icp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Filters narrows which people an ICP targets. At least one field must be set.
type Filters struct {
	Titles       []string `yaml:"titles" json:"titles,omitempty"`
	Seniorities  []string `yaml:"seniorities" json:"seniorities,omitempty"`
	Industries   []string `yaml:"industries" json:"industries,omitempty"`
	CompanySizes []string `yaml:"company_sizes" json:"company_sizes,omitempty"`
	Locations    []string `yaml:"locations" json:"locations,omitempty"`
	Keywords     []string `yaml:"keywords" json:"keywords,omitempty"`
}

// IsEmpty reports whether no filter dimension is set.
func (f Filters) IsEmpty() bool {
	return len(f.Titles) == 0 && len(f.Seniorities) == 0 && len(f.Industries) == 0 &&
		len(f.CompanySizes) == 0 && len(f.Locations) == 0 && len(f.Keywords) == 0
}

// Weights apportions the 0-100 fit score across scoring rules.
type Weights struct {
	Title         int `yaml:"title" json:"title"`
	Seniority     int `yaml:"seniority" json:"seniority"`
	Industry      int `yaml:"industry" json:"industry"`
	CompanySize   int `yaml:"company_size" json:"company_size"`
	Location      int `yaml:"location" json:"location"`
	EmailVerified int `yaml:"email_verified" json:"email_verified"`
}

// DefaultWeights sums to 100.
func DefaultWeights() Weights {
	return Weights{
		Title:         30,
		Seniority:     15,
		Industry:      20,
		CompanySize:   15,
		Location:      10,
		EmailVerified: 10,
	}
}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Config is one named ICP definition.
type Config struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description,omitempty"`
	Filters     Filters `yaml:"filters" json:"filters"`
	Weights     Weights `yaml:"weights" json:"weights"`
}

// Snapshot serializes the config for the run ledger.
func (c *Config) Snapshot() ([]byte, error) {
	b, err := json.Marshal(c)
	return b, eris.Wrap(err, "icp: marshal snapshot")
}

// Load reads the named ICP config from dir, trying <name>.yaml, <name>.yml,
// and <name>.json in that order. Filters are required; missing weights fall
// back to DefaultWeights.
func Load(dir, name string) (*Config, error) {
	if strings.ContainsAny(name, `/\`) || name == "" {
		return nil, eris.Errorf("icp: invalid config name %q", name)
	}

	for _, ext := range []string{".yaml", ".yml", ".json"} {
		path := filepath.Join(dir, name+ext)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "icp: read %s", path)
		}
		return parse(data, name, ext)
	}
	return nil, eris.Errorf("icp: config not found: %s", name)
}

func parse(data []byte, name, ext string) (*Config, error) {
	var cfg Config
	var err error
	if ext == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "icp: parse config %s", name)
	}

	if cfg.Name == "" {
		cfg.Name = name
	}
	if cfg.Filters.IsEmpty() {
		return nil, eris.Errorf("icp: config %s has no filters", name)
	}
	if cfg.Weights.IsZero() {
		cfg.Weights = DefaultWeights()
	}
	return &cfg, nil
}

// List returns the names of all ICP configs in dir, sorted.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "icp: read dir %s", dir)
	}

	seen := map[string]bool{}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		switch ext {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
