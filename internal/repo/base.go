package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/pagination"
)

// Base is embedded by the domain repositories. WithTx variants build a new
// Base around the transaction handle.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Conn prefers tx when the caller already holds a transaction.
func (b Base) Conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return b.DB(ctx)
}

// Bound reports whether the base has a connection to work with.
func (b Base) Bound() bool {
	return b.db != nil
}

// FindPage runs q newest first with keyset pagination on (created_at, id).
// key extracts the cursor from a row.
func FindPage[T any](q *gorm.DB, cursor *pagination.Cursor, limit int, key func(T) pagination.Cursor) ([]T, *pagination.Cursor, error) {
	if cursor != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []T
	if err := q.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(rows, limit, key)
	return page, next, nil
}
