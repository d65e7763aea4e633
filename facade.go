package cognitoemu

import (
	"context"
	"fmt"
	"sync"

	"github.com/localcognito/cognitoemu/store"
)

// facade is the Cognito facade of spec §4.5: it owns the pool cache and
// the reverse ClientId -> PoolId index, the sole point through which the
// Engine resolves a wire-level UserPoolId/ClientId pair to a loaded Pool.
type facade struct {
	backend store.Backend

	mu          sync.RWMutex
	pools       map[string]*store.Pool
	clientIndex map[string]string // ClientId -> UserPoolId
}

func newFacade(backend store.Backend) *facade {
	return &facade{
		backend:     backend,
		pools:       make(map[string]*store.Pool),
		clientIndex: make(map[string]string),
	}
}

// getUserPool loads the pool on first access and caches it; subsequent
// calls return the cached instance so its mutex is shared across callers.
func (f *facade) getUserPool(ctx context.Context, id string) (*store.Pool, error) {
	f.mu.RLock()
	if p, ok := f.pools[id]; ok {
		f.mu.RUnlock()
		return p, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pools[id]; ok {
		return p, nil
	}

	p, err := store.Load(ctx, f.backend, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("cognitoemu: load pool %s: %w", id, err)
	}
	f.pools[id] = p
	f.indexClientsLocked(p)
	return p, nil
}

// getUserPoolForClientId resolves clientId through the reverse index,
// loading every known client on a miss is not possible without scanning
// pools, so the index is authoritative: an unregistered client fails with
// ResourceNotFound exactly as an unknown pool would.
func (f *facade) getUserPoolForClientId(ctx context.Context, clientId string) (*store.Pool, error) {
	f.mu.RLock()
	poolId, ok := f.clientIndex[clientId]
	f.mu.RUnlock()
	if !ok {
		return nil, ErrResourceNotFound
	}
	return f.getUserPool(ctx, poolId)
}

// getAppClient scans the resolved pool's clients for clientId.
func (f *facade) getAppClient(ctx context.Context, clientId string) (*store.AppClient, *store.Pool, error) {
	pool, err := f.getUserPoolForClientId(ctx, clientId)
	if err != nil {
		return nil, nil, err
	}
	client, ok := pool.GetClient(clientId)
	if !ok {
		return nil, nil, ErrResourceNotFound
	}
	return client, pool, nil
}

// createUserPool persists a brand-new pool and registers it in the cache.
func (f *facade) createUserPool(ctx context.Context, doc *store.UserPool) (*store.Pool, error) {
	p, err := store.New(ctx, f.backend, doc)
	if err != nil {
		return nil, fmt.Errorf("cognitoemu: create pool: %w", err)
	}
	f.mu.Lock()
	f.pools[doc.Id] = p
	f.mu.Unlock()
	return p, nil
}

// registerClient records clientId -> pool.ID() in the reverse index after
// the caller has persisted the client onto the pool itself.
func (f *facade) registerClient(pool *store.Pool, clientId string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clientIndex[clientId] = pool.ID()
}

func (f *facade) indexClientsLocked(p *store.Pool) {
	for _, c := range p.Clients() {
		f.clientIndex[c.ClientId] = p.ID()
	}
}
