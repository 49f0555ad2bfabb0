package db

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned by Get for a missing key
var ErrNotFound = leveldb.ErrNotFound

// LevelDB wraps the actual LevelDB connection
type LevelDB struct {
	conn *leveldb.DB
}

// NewLevelDB opens (or creates) a LevelDB instance at the given path
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{conn: db}, nil
}

// NewMemLevelDB opens a LevelDB instance backed by memory, used by tests
func NewMemLevelDB() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{conn: db}, nil
}

// Close safely closes the LevelDB connection
func (l *LevelDB) Close() error {
	return l.conn.Close()
}

// Put inserts or updates a key-value pair
func (l *LevelDB) Put(key, value []byte) error {
	return l.conn.Put(key, value, nil)
}

// Get retrieves the value for a given key
func (l *LevelDB) Get(key []byte) ([]byte, error) {
	return l.conn.Get(key, nil)
}

// NewIterator returns an iterator over the keys starting with prefix.
// A nil prefix iterates everything.
func (l *LevelDB) NewIterator(prefix []byte) iterator.Iterator {
	if prefix == nil {
		return l.conn.NewIterator(nil, nil)
	}
	return l.conn.NewIterator(util.BytesPrefix(prefix), nil)
}
