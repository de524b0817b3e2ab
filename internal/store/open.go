package store

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
)

// Open creates the configured store and runs its migration. An empty dsn for
// sqlite means "extract.db" in the working directory.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "extract.db"
		}
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func itoa(n int) string { return strconv.Itoa(n) }
