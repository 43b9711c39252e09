// Package dialectcfg loads a dialect.Profile from YAML, for embedders
// whose backend is a variant of a built-in profile (e.g. a Postgres
// fork with different NULLS ordering support) rather than one of the
// three built-ins outright.
package dialectcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/navql/dialect"
)

// Config is the YAML-loadable description of a dialect.Profile: a base
// built-in profile to start from, plus any flag overrides.
type Config struct {
	Base                      string `yaml:"base"`
	DivisionPromotesToDecimal *bool  `yaml:"division_promotes_to_decimal"`
	SupportsFullOuterJoin     *bool  `yaml:"supports_full_outer_join"`
	SupportsNullsOrdering     *bool  `yaml:"supports_nulls_ordering"`
}

// LoadFile reads a Config from a YAML file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("dialectcfg: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("dialectcfg: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Profile builds the dialect.Profile the config describes: the named
// base profile with any overrides applied.
func (c Config) Profile() (dialect.Profile, error) {
	base, ok := dialect.ByName(c.Base)
	if !ok {
		return dialect.Profile{}, fmt.Errorf("dialectcfg: unknown base dialect %q", c.Base)
	}
	if c.DivisionPromotesToDecimal != nil {
		base.DivisionPromotesToDecimal = *c.DivisionPromotesToDecimal
	}
	if c.SupportsFullOuterJoin != nil {
		base.SupportsFullOuterJoin = *c.SupportsFullOuterJoin
	}
	if c.SupportsNullsOrdering != nil {
		base.SupportsNullsOrdering = *c.SupportsNullsOrdering
	}
	return base, nil
}
