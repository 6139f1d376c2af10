package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrDBNotReady = errors.New("database not initialized")
	// ErrDuplicateKey is returned when an insert or update violates a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrStaleRecord is returned when a conditional update finds the row changed underneath it.
	ErrStaleRecord = errors.New("record changed concurrently")
)

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

func translate(err error) error {
	if err != nil && isDuplicateKey(err) {
		return errors.Join(ErrDuplicateKey, err)
	}
	return err
}
