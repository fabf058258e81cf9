package gorm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/techmatters/terraso-go/pkg/model"
	"github.com/techmatters/terraso-go/pkg/server/store"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 db,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	require.NoError(t, err)
	return gormDB, mock
}

func TestHealthStoreSchemaStatus(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT version, dirty FROM terraso_schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).AddRow(5, false))

	st, err := NewHealthStore(db).SchemaStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.SchemaStatus{Version: 5}, st)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthStoreSchemaStatusUnmigrated(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT version, dirty FROM terraso_schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}))

	st, err := NewHealthStore(db).SchemaStatus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Version)
}

func TestHealthStoreSchemaStatusError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT version, dirty FROM terraso_schema_migrations`).
		WillReturnError(errors.New("connection refused"))

	_, err := NewHealthStore(db).SchemaStatus(context.Background())
	assert.EqualError(t, err, "connection refused")
}

func TestUsersStoreFindUserNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	u, err := NewUsersStore(db).FindUser(context.Background(), uuid.New())
	assert.Nil(t, u)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportStoreFindExportTokenMiss(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "export_tokens" WHERE token = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"token"}))

	tok, err := NewExportStore(db).FindExportToken(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, tok)
}

func TestExportStoreFindExportTokenFor(t *testing.T) {
	db, mock := newMockDB(t)
	siteID := uuid.NewString()
	mock.ExpectQuery(`SELECT \* FROM "export_tokens" WHERE resource_type = \$1 AND resource_id = \$2`).
		WithArgs(model.ExportSite, siteID).
		WillReturnRows(sqlmock.NewRows([]string{"token", "resource_type", "resource_id"}).
			AddRow("0d6f0c3e-0b7c-4a43-a5cf-4ef64e1a2e57", string(model.ExportSite), siteID))

	tok, err := NewExportStore(db).FindExportTokenFor(context.Background(), model.ExportSite, siteID)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, siteID, tok.ResourceID)
	assert.Equal(t, model.ExportSite, tok.ResourceType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportStoreDeleteExportToken(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "export_tokens" WHERE token = \$1`).
		WithArgs("abc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewExportStore(db).DeleteExportToken(context.Background(), "abc")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoilIDCacheStoreMiss(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "soil_id_caches" WHERE latitude = \$1 AND longitude = \$2`).
		WithArgs(32.1, -110.2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	entry, err := NewSoilIDCacheStore(db).FindSoilIDCache(context.Background(), 32.1, -110.2)
	assert.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferSitesMismatch(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "sites" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := NewSitesStore(db).TransferSites(context.Background(), []uuid.UUID{uuid.New(), uuid.New()}, uuid.New())
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferSites(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "sites" SET`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := NewSitesStore(db).TransferSites(context.Background(), []uuid.UUID{uuid.New(), uuid.New()}, uuid.New())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceHardDelete(t *testing.T) {
	db, mock := newMockDB(t)
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	for i, p := range purgeOrder {
		mock.ExpectExec(`DELETE FROM "` + p.table + `" WHERE deleted_at IS NOT NULL AND deleted_at < \$1`).
			WithArgs(cutoff).
			WillReturnResult(sqlmock.NewResult(0, int64(i)))
	}
	mock.ExpectExec(`DELETE FROM membership_lists`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	removed, err := NewMaintenanceStore(db).HardDelete(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed["shared_resources"])
	assert.Equal(t, int64(len(purgeOrder)-1), removed["users"])
	assert.Equal(t, int64(4), removed["membership_lists"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceHardDeleteRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	cutoff := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "shared_resources"`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	removed, err := NewMaintenanceStore(db).HardDelete(context.Background(), cutoff)
	assert.Error(t, err)
	assert.Nil(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageCountsThenLoads(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT count\(1\) FROM "groups" WHERE "groups"\."deleted_at" IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT \* FROM "groups" .*ORDER BY name LIMIT 2 OFFSET 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(uuid.NewString(), "Beta").
			AddRow(uuid.NewString(), "Gamma"))

	p, err := page[model.Group](db.Model(&model.Group{}), store.ListOptions{Limit: 2, Offset: 1}, "name")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.Total)
	require.Len(t, p.Items, 2)
	assert.Equal(t, "Beta", p.Items[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
