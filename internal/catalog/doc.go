// Package catalog holds the remote configuration the core runs on: the
// capability table (devices), the Tuya country endpoints (countries) and the
// unit table (units).
//
// Each document is read from the local copy in SQLite. When no local copy
// exists, or a refresh is forced, it is fetched from the remote base URL,
// decoded, and saved back. A successful load swaps in a new immutable
// Snapshot; readers holding the previous snapshot keep a consistent view.
// A failed load leaves the current snapshot in place.
//
// Usage:
//
//	store := catalog.NewStore(catalog.NewSQLiteRepository(db.DB),
//	    catalog.NewHTTPFetcher(cfg.Catalog.BaseURL, cfg.GetFetchTimeout()), log)
//	if err := store.Load(ctx, false); err != nil {
//	    return err
//	}
//	table := store.Devices()
package catalog
