package inmemdb

import (
	"sync"
)

// DB is an in-memory database. Writers are serialized: a transaction holds the write lock
// and works on a snapshot of the tables that replaces them on commit.
type DB struct {
	mutex  sync.RWMutex
	tables *tables
}

func Open() *DB {
	return &DB{tables: newTables()}
}
