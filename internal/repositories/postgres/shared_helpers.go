package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/auth-service/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// translateError maps gorm and driver errors onto the repository sentinels.
// Anything that is not a known domain condition is reported as the store being unavailable.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repositories.ErrDuplicate
	default:
		return fmt.Errorf("%w: %v", repositories.ErrUnavailable, err)
	}
}

// paginate applies limit and offset with sane bounds
func paginate(limit, offset int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			limit = defaultPageSize
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
		if offset < 0 {
			offset = 0
		}
		return db.Limit(limit).Offset(offset)
	}
}
