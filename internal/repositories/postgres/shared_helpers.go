package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// translateError maps gorm errors onto repository sentinels. The connection must
// be opened with TranslateError so unique violations arrive as gorm.ErrDuplicatedKey.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repositories.ErrDuplicate
	}
	return err
}

func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return query.Limit(limit).Offset(offset)
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}
