package oracle

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	// BackendBDD decides formulas by quantifying a BDD of the matrix.
	BackendBDD = "bdd"
	// BackendExpand decides formulas by expanding inner quantifiers
	// into a circuit and solving it with gini.
	BackendExpand = "expand"
)

// Config tunes an oracle. The zero value of a size field selects the
// library default; a zero MaxNodes or MaxCircuit means no limit.
type Config struct {
	Backend string `yaml:"backend"`

	// NodeSize is the initial size of the BDD node table.
	NodeSize int `yaml:"nodeSize"`
	// CacheSize is the initial number of entries in the BDD operation
	// caches.
	CacheSize int `yaml:"cacheSize"`
	// CacheRatio lets the BDD caches grow with the node table, in
	// entries per 100 nodes.
	CacheRatio int `yaml:"cacheRatio"`
	// MaxNodes bounds the BDD node table.
	MaxNodes int `yaml:"maxNodes"`

	// MaxCircuit bounds the number of circuit nodes created while
	// expanding inner quantifiers.
	MaxCircuit int `yaml:"maxCircuit"`
}

func DefaultConfig() Config {
	return Config{
		Backend:    BackendBDD,
		NodeSize:   10000,
		CacheSize:  10000,
		CacheRatio: 25,
		MaxCircuit: 1 << 20,
	}
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendBDD, BackendExpand:
	default:
		return fmt.Errorf("unknown oracle backend %q", c.Backend)
	}
	for name, v := range map[string]int{
		"nodeSize":   c.NodeSize,
		"cacheSize":  c.CacheSize,
		"cacheRatio": c.CacheRatio,
		"maxNodes":   c.MaxNodes,
		"maxCircuit": c.MaxCircuit,
	} {
		if v < 0 {
			return fmt.Errorf("oracle config: %s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// LoadConfig reads a YAML oracle configuration. Fields missing from
// the file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading oracle config")
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing oracle config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
