package store

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

var _ KV = &LevelDB{}

type LevelDB struct {
	db *leveldb.DB
}

func OpenLevelDB(dir string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// NewMemLevelDB returns a LevelDB kept entirely in memory.
func NewMemLevelDB() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	val, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return val, err
}

func (l *LevelDB) Put(key, value []byte) error {
	return l.db.Put(key, value, &opt.WriteOptions{Sync: true})
}

func (l *LevelDB) Update(key []byte, fn func(old []byte) ([]byte, error)) (err error) {
	tr, err := l.db.OpenTransaction()
	if err != nil {
		return
	}
	defer func() {
		if err != nil {
			tr.Discard()
		}
	}()
	old, err := tr.Get(key, nil)
	if err != nil {
		if err != leveldb.ErrNotFound {
			return
		}
		old = nil
	}
	val, err := fn(old)
	if err != nil {
		return
	}
	err = tr.Put(key, val, &opt.WriteOptions{Sync: true})
	if err != nil {
		return
	}
	err = tr.Commit()
	return
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}
