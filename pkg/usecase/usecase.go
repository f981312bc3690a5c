package usecase

import (
	"github.com/gridmetrics-lab/derrev/pkg/catalog/dsire"
	"github.com/gridmetrics-lab/derrev/pkg/domain/interfaces"
	"github.com/gridmetrics-lab/derrev/pkg/service/locator"
	"github.com/gridmetrics-lab/derrev/pkg/service/marketcache"
	"github.com/gridmetrics-lab/derrev/pkg/service/pudl"
	"github.com/gridmetrics-lab/derrev/pkg/valuation"
)

// UseCases wires the repository and data services behind the API operations.
// Service handles are optional: operations needing an absent service return
// the matching sentinel error instead of panicking, so a server can run with
// only the stores it has credentials for.
type UseCases struct {
	repo    interfaces.Repository
	locator *locator.Locator
	cache   *marketcache.Cache
	catalog *dsire.Catalog
	store   *pudl.Store
	policy  *valuation.Policy
}

type Option func(*UseCases)

func WithLocator(l *locator.Locator) Option {
	return func(uc *UseCases) {
		uc.locator = l
	}
}

func WithMarketCache(c *marketcache.Cache) Option {
	return func(uc *UseCases) {
		uc.cache = c
	}
}

func WithCatalog(c *dsire.Catalog) Option {
	return func(uc *UseCases) {
		uc.catalog = c
	}
}

func WithPUDL(s *pudl.Store) Option {
	return func(uc *UseCases) {
		uc.store = s
	}
}

func WithPolicy(p *valuation.Policy) Option {
	return func(uc *UseCases) {
		uc.policy = p
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:   repo,
		policy: valuation.DefaultPolicy(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Policy returns the active lender policy
func (uc *UseCases) Policy() *valuation.Policy {
	return uc.policy
}
