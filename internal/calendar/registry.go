package calendar

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultMaxResolvers bounds the number of settings a Registry tracks.
const DefaultMaxResolvers = 256

// Registry keeps one Resolver per settings key, all sharing one Fetcher and
// therefore one MonthCache. When full, an arbitrary resolver is dropped to
// make room.
type Registry struct {
	fetcher *Fetcher
	cfg     ResolverConfig
	logger  *slog.Logger
	max     int

	mu        sync.Mutex
	resolvers map[string]*Resolver
}

// NewRegistry returns an empty Registry.
func NewRegistry(fetcher *Fetcher, cfg ResolverConfig, maxResolvers int, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if maxResolvers <= 0 {
		maxResolvers = DefaultMaxResolvers
	}
	return &Registry{
		fetcher:   fetcher,
		cfg:       cfg,
		logger:    logger,
		max:       maxResolvers,
		resolvers: make(map[string]*Resolver),
	}
}

// Resolver returns the Resolver for s, configured and with its window
// refreshed if needed.
func (reg *Registry) Resolver(ctx context.Context, s Settings) *Resolver {
	key := s.Key()
	reg.mu.Lock()
	r, ok := reg.resolvers[key]
	if !ok {
		if len(reg.resolvers) >= reg.max {
			for k := range reg.resolvers {
				delete(reg.resolvers, k)
				break
			}
		}
		r = NewResolver(reg.fetcher, reg.cfg, reg.logger.With(slog.String("settings", key)))
		reg.resolvers[key] = r
	}
	reg.mu.Unlock()

	r.Configure(ctx, s)
	return r
}

// Len returns the number of resolvers.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.resolvers)
}

// Fetcher returns the shared fetcher.
func (reg *Registry) Fetcher() *Fetcher {
	return reg.fetcher
}
