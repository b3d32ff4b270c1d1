package service

import "context"

// CatalogCache stores serialized catalog query results keyed by a filter fingerprint.
// Implementations must treat every mutation signalled through Invalidate as making all
// earlier entries unreachable. Get reports the cache version it read; Set must store
// under that version so a result computed before an Invalidate is never served after it.
// Errors are the implementation's to log; a failed Get is a miss.
type CatalogCache interface {
	Get(ctx context.Context, fingerprint string) ([]byte, int64, bool)
	Set(ctx context.Context, version int64, fingerprint string, payload []byte)
	Invalidate(ctx context.Context)
}

func invalidateCatalog(cache CatalogCache) {
	if cache != nil {
		cache.Invalidate(context.Background())
	}
}
