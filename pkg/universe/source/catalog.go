package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blang/semver/v4"

	"github.com/perdasilva/depres/pkg/depspec"
	"github.com/perdasilva/depres/pkg/universe"
	"github.com/perdasilva/depres/pkg/version"
)

// ErrUnsupportedSchema is returned for catalogs whose schemaVersion falls
// outside SupportedSchemaRange.
var ErrUnsupportedSchema = errors.New("unsupported catalog schema")

// SupportedSchemaRange is the range of catalog schemaVersions this package
// reads.
const SupportedSchemaRange = ">=1.0.0 <2.0.0"

var supportedSchema = semver.MustParseRange(SupportedSchemaRange)

// Source supplies candidates to a universe.
type Source interface {
	Candidates(ctx context.Context) ([]*universe.Candidate, error)
}

// Catalog is the on-disk description of a set of packages. The same shape
// is read from YAML, JSON and TOML.
type Catalog struct {
	SchemaVersion string    `yaml:"schemaVersion" toml:"schemaVersion"`
	Grammar       string    `yaml:"grammar,omitempty" toml:"grammar,omitempty"`
	Packages      []Package `yaml:"packages" toml:"packages"`
}

type Package struct {
	Name       string    `yaml:"name" toml:"name"`
	Repository string    `yaml:"repository,omitempty" toml:"repository,omitempty"`
	Versions   []Release `yaml:"versions" toml:"versions"`
}

type Release struct {
	Version string          `yaml:"version" toml:"version"`
	Slot    string          `yaml:"slot,omitempty" toml:"slot,omitempty"`
	Depend  string          `yaml:"depend,omitempty" toml:"depend,omitempty"`
	Grammar string          `yaml:"grammar,omitempty" toml:"grammar,omitempty"`
	Flags   map[string]bool `yaml:"flags,omitempty" toml:"flags,omitempty"`
}

// Validate checks the schema version and every package and release name.
func (c *Catalog) Validate() error {
	v, err := semver.ParseTolerant(c.SchemaVersion)
	if err != nil {
		return fmt.Errorf("%w: schemaVersion %q: %s", ErrUnsupportedSchema, c.SchemaVersion, err)
	}
	if !supportedSchema(v) {
		return fmt.Errorf("%w: schemaVersion %s not in %s", ErrUnsupportedSchema, v, SupportedSchemaRange)
	}
	if c.Grammar != "" {
		if _, err := depspec.LookupGrammar(c.Grammar); err != nil {
			return err
		}
	}
	for _, pkg := range c.Packages {
		if !depspec.ValidName(pkg.Name) {
			return fmt.Errorf("invalid package name %q", pkg.Name)
		}
		for _, rel := range pkg.Versions {
			if !version.Valid(rel.Version) {
				return fmt.Errorf("package %s: %w %q", pkg.Name, version.ErrInvalidVersion, rel.Version)
			}
			if rel.Grammar != "" {
				if _, err := depspec.LookupGrammar(rel.Grammar); err != nil {
					return fmt.Errorf("package %s-%s: %w", pkg.Name, rel.Version, err)
				}
			}
		}
	}
	return nil
}

// Candidates flattens the catalog into one candidate per release. Releases
// without a slot get slot "0".
func (c *Catalog) Candidates(_ context.Context) ([]*universe.Candidate, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := make([]*universe.Candidate, 0)
	for _, pkg := range c.Packages {
		for _, rel := range pkg.Versions {
			v, err := version.Parse(rel.Version)
			if err != nil {
				return nil, fmt.Errorf("package %s: %w", pkg.Name, err)
			}
			slot := rel.Slot
			if slot == "" {
				slot = "0"
			}
			grammar := rel.Grammar
			if grammar == "" {
				grammar = c.Grammar
			}
			out = append(out, &universe.Candidate{
				Name:       pkg.Name,
				Version:    v,
				Slot:       slot,
				Repository: pkg.Repository,
				Depend:     strings.TrimSpace(rel.Depend),
				Grammar:    grammar,
				Flags:      rel.Flags,
			})
		}
	}
	return out, nil
}

// LoadFile reads a catalog, picking the format from the file extension.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat *Catalog
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cat, err = ParseYAML(data)
	case ".json":
		cat, err = ParseJSON(data)
	case ".toml":
		cat, err = ParseTOML(data)
	default:
		return nil, fmt.Errorf("catalog %s: unknown format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// LoadUniverse builds a universe from every source in order. Later sources
// replace candidates with the same ID.
func LoadUniverse(ctx context.Context, defaultGrammar depspec.Grammar, sources ...Source) (*universe.Universe, error) {
	all := make([]*universe.Candidate, 0)
	for _, s := range sources {
		cs, err := s.Candidates(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, cs...)
	}
	return universe.NewUniverse(defaultGrammar, all...), nil
}
