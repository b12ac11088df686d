package store

import (
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

var _ KV = &SQLiteKV{}

// sqlite models

type Blob struct {
	Name      string `gorm:"primary_key" json:"name"`
	Data      []byte `json:"data"`
	UpdatedAt time.Time
}

type SQLiteKV struct {
	db *gorm.DB
}

func OpenSQLite(path string) (*SQLiteKV, error) {
	db, err := gorm.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Blob{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteKV{db: db}, nil
}

func getBlob(db *gorm.DB, key []byte) ([]byte, error) {
	var b Blob
	if err := db.Where("name = ?", string(key)).First(&b).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b.Data, nil
}

func (s *SQLiteKV) Get(key []byte) ([]byte, error) {
	return getBlob(s.db, key)
}

func (s *SQLiteKV) Put(key, value []byte) error {
	return s.db.Save(&Blob{Name: string(key), Data: value}).Error
}

func (s *SQLiteKV) Update(key []byte, fn func(old []byte) ([]byte, error)) (err error) {
	tx := s.db.Begin()
	if err = tx.Error; err != nil {
		return
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	old, err := getBlob(tx, key)
	if err != nil {
		if err != ErrNotFound {
			return
		}
		old = nil
	}
	val, err := fn(old)
	if err != nil {
		return
	}
	if err = tx.Save(&Blob{Name: string(key), Data: val}).Error; err != nil {
		return
	}
	err = tx.Commit().Error
	return
}

func (s *SQLiteKV) Close() error {
	return s.db.Close()
}
