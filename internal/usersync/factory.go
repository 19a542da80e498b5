package usersync

import (
	"context"
	"study_notebook_backend/internal/localcache"
)

// Factory 持有共享的存储，为每个请求创建独立的 Facade
type Factory struct {
	Identities IdentitySource
	Repo       RecordRepository
	Cache      localcache.Store
}

func NewFactory(identities IdentitySource, repo RecordRepository, cache localcache.Store) *Factory {
	return &Factory{Identities: identities, Repo: repo, Cache: cache}
}

func (f *Factory) New() *Facade {
	return NewFacade(f.Identities, f.Repo, f.Cache)
}

type facadeKey struct{}

// WithFacade 同一请求内复用 Facade
func WithFacade(ctx context.Context, facade *Facade) context.Context {
	return context.WithValue(ctx, facadeKey{}, facade)
}

// FromContext 取出请求内的 Facade，没有时新建一个
func (f *Factory) FromContext(ctx context.Context) *Facade {
	if facade, ok := ctx.Value(facadeKey{}).(*Facade); ok && facade != nil {
		return facade
	}
	return f.New()
}
