package storage

import (
	"context"
	"fmt"
)

// Open builds a store from a driver name and a driver specific location:
//
//	memory  -
//	file    directory
//	sqlite  database file or ":memory:"
//	badger  directory, empty for in-memory
//	redis   redis:// url
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "memory", "":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(dsn)
	case "sqlite", "sqlite3":
		return NewSQLiteStore(dsn)
	case "badger":
		return NewBadgerStore(dsn)
	case "redis":
		return DialRedis(ctx, dsn)
	}
	return nil, otherError(driver, fmt.Errorf("unknown storage driver %q", driver))
}
