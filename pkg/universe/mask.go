package universe

import (
	"context"
	"fmt"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/blang/semver/v4"

	"github.com/perdasilva/depres/pkg/version"
)

// MaskExpression hides every candidate for which Expression evaluates to
// true. Expressions see the candidate as `Candidate` with the fields Name,
// Version, Slot, Repository, Installed and Flags.
type MaskExpression struct {
	Expression string      `json:"expression" yaml:"expression"`
	program    *vm.Program `json:"-" yaml:"-"`
}

type maskView struct {
	Name       string
	Version    string
	Slot       string
	Repository string
	Installed  bool
	Flags      map[string]bool
}

func maskEnv(c *Candidate) map[string]interface{} {
	var view maskView
	if c != nil {
		view = maskView{
			Name:       c.Name,
			Version:    c.Version.String(),
			Slot:       c.Slot,
			Repository: c.Repository,
			Installed:  c.Installed,
			Flags:      c.Flags,
		}
	}
	return map[string]interface{}{
		"Candidate": view,
		"InSemverRange": func(v string, versionRange string) (bool, error) {
			ver, err := semver.ParseTolerant(v)
			if err != nil {
				return false, err
			}
			rng, err := semver.ParseRange(versionRange)
			if err != nil {
				return false, err
			}
			return rng(ver), nil
		},
		"VersionCompare": func(v1 string, v2 string) (int, error) {
			a, err := version.Parse(v1)
			if err != nil {
				return 0, err
			}
			b, err := version.Parse(v2)
			if err != nil {
				return 0, err
			}
			return version.Compare(a, b), nil
		},
	}
}

func (e *MaskExpression) compile() error {
	if e.program != nil {
		return nil
	}
	program, err := expr.Compile(e.Expression, expr.Env(maskEnv(nil)), expr.AsBool())
	if err != nil {
		return fmt.Errorf("mask %q: %w", e.Expression, err)
	}
	e.program = program
	return nil
}

func (e *MaskExpression) evaluate(c *Candidate) (bool, error) {
	if err := e.compile(); err != nil {
		return false, err
	}
	output, err := expr.Run(e.program, maskEnv(c))
	if err != nil {
		return false, fmt.Errorf("mask %q on %s: %w", e.Expression, c.ID(), err)
	}
	return output.(bool), nil
}

// MaskingProvider hides masked candidates from CandidatesFor. Installed
// candidates stay visible through InstalledCandidateFor.
type MaskingProvider struct {
	Provider
	masks []*MaskExpression
}

// NewMaskingProvider compiles masks up front so that syntax errors surface
// before any resolve starts.
func NewMaskingProvider(delegate Provider, masks ...string) (*MaskingProvider, error) {
	p := &MaskingProvider{Provider: delegate}
	for _, m := range masks {
		mask := &MaskExpression{Expression: m}
		if err := mask.compile(); err != nil {
			return nil, err
		}
		p.masks = append(p.masks, mask)
	}
	return p, nil
}

// Masked reports whether any mask hides c.
func (p *MaskingProvider) Masked(c *Candidate) (bool, error) {
	for _, mask := range p.masks {
		masked, err := mask.evaluate(c)
		if err != nil {
			return false, err
		}
		if masked {
			return true, nil
		}
	}
	return false, nil
}

func (p *MaskingProvider) CandidatesFor(ctx context.Context, name string) ([]*Candidate, error) {
	candidates, err := p.Provider.CandidatesFor(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]*Candidate, 0, len(candidates))
	for _, c := range candidates {
		masked, err := p.Masked(c)
		if err != nil {
			return nil, err
		}
		if !masked {
			out = append(out, c)
		}
	}
	return out, nil
}
