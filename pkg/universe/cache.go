package universe

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/perdasilva/depres/pkg/depspec"
)

// CachingProvider wraps a Provider and memoizes its answers. Concurrent
// callers asking for the same key share one computation, and every later
// query is served from the first result for the lifetime of the cache.
type CachingProvider struct {
	delegate Provider

	group singleflight.Group

	mu           sync.RWMutex
	candidates   map[string][]*Candidate
	dependencies map[string]*depspec.AllOf
	installed    map[string]*Candidate
}

var _ Provider = &CachingProvider{}

func NewCachingProvider(delegate Provider) *CachingProvider {
	return &CachingProvider{
		delegate:     delegate,
		candidates:   make(map[string][]*Candidate),
		dependencies: make(map[string]*depspec.AllOf),
		installed:    make(map[string]*Candidate),
	}
}

func (p *CachingProvider) CandidatesFor(ctx context.Context, name string) ([]*Candidate, error) {
	p.mu.RLock()
	cached, ok := p.candidates[name]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := p.group.Do("candidates/"+name, func() (interface{}, error) {
		p.mu.RLock()
		cached, ok := p.candidates[name]
		p.mu.RUnlock()
		if ok {
			return cached, nil
		}
		out, err := p.delegate.CandidatesFor(ctx, name)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.candidates[name] = out
		p.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Candidate), nil
}

func (p *CachingProvider) DeclaredDependencies(ctx context.Context, c *Candidate) (*depspec.AllOf, error) {
	id := c.ID()
	p.mu.RLock()
	cached, ok := p.dependencies[id]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := p.group.Do("dependencies/"+id, func() (interface{}, error) {
		p.mu.RLock()
		cached, ok := p.dependencies[id]
		p.mu.RUnlock()
		if ok {
			return cached, nil
		}
		tree, err := p.delegate.DeclaredDependencies(ctx, c)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.dependencies[id] = tree
		p.mu.Unlock()
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*depspec.AllOf), nil
}

func (p *CachingProvider) FlagState(c *Candidate, flag string) bool {
	return p.delegate.FlagState(c, flag)
}

func (p *CachingProvider) InstalledCandidateFor(ctx context.Context, name, slot string) (*Candidate, error) {
	key := name + ":" + slot
	p.mu.RLock()
	cached, ok := p.installed[key]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := p.group.Do("installed/"+key, func() (interface{}, error) {
		p.mu.RLock()
		cached, ok := p.installed[key]
		p.mu.RUnlock()
		if ok {
			return cached, nil
		}
		c, err := p.delegate.InstalledCandidateFor(ctx, name, slot)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.installed[key] = c
		p.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	c, _ := v.(*Candidate)
	return c, nil
}
