package gorm

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/techmatters/terraso-go/pkg/server/store"
)

// first loads one row into dest, mapping a miss to store.ErrNotFound.
func first[T any](q *gorm.DB, what string) (*T, error) {
	var out T
	if err := q.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", what, store.ErrNotFound)
		}
		return nil, err
	}
	return &out, nil
}

// firstOrNil loads one row, returning nil, nil on a miss.
func firstOrNil[T any](q *gorm.DB) (*T, error) {
	var out T
	if err := q.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// page counts the filtered rows, then loads the requested window.
func page[T any](q *gorm.DB, opts store.ListOptions, order string) (store.Page[T], error) {
	var (
		total int64
		items []T
	)
	if err := q.Session(&gorm.Session{}).Model(new(T)).Count(&total).Error; err != nil {
		return store.Page[T]{}, err
	}
	q = q.Order(order)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Find(&items).Error; err != nil {
		return store.Page[T]{}, err
	}
	return store.Page[T]{Items: items, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}

// bySlugOrID matches a uuid against id and anything else against slug.
func bySlugOrID(q *gorm.DB, slugOrID string) *gorm.DB {
	if id, err := uuid.Parse(slugOrID); err == nil {
		return q.Where("id = ?", id)
	}
	return q.Where("slug = ?", slugOrID)
}

func like(s string) string {
	return "%" + s + "%"
}
