package gorm

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"github.com/techmatters/terraso-go/pkg/server/store"
)

var _ store.HealthStore = (*HealthStore)(nil)

type HealthStore struct {
	db *gorm.DB
}

func NewHealthStore(db *gorm.DB) *HealthStore {
	return &HealthStore{db: db}
}

func (s *HealthStore) SchemaStatus(ctx context.Context) (store.SchemaStatus, error) {
	var st store.SchemaStatus
	row := s.db.WithContext(ctx).Raw(`SELECT version, dirty FROM terraso_schema_migrations LIMIT 1`).Row()
	if err := row.Scan(&st.Version, &st.Dirty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.SchemaStatus{}, nil
		}
		return st, err
	}
	return st, nil
}
