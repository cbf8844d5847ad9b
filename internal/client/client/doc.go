// Package client bootstraps the local client database: it opens the SQLite
// file and applies the embedded goose migrations (InitDatabase,
// RunMigrations). The session store and metadata repository run on top of
// the returned handle.
package client
