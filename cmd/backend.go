package cmd

import (
	"context"
	"fmt"
	"net/url"

	"trippin/database"
	"trippin/database/kvdb"
	"trippin/database/postgres"
)

// openBackend picks the storage engine from the scheme of dsn.
func openBackend(ctx context.Context, dsn string) (*database.Backend, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse db connection string: %w", err)
	}

	switch u.Scheme {
	case "kvdb":
		return kvdb.Open(u.Host + u.Path)
	case "postgres", "postgresql":
		db, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db.Backend(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", u.Scheme)
}
