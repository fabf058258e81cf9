package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestConnectRequiresURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Connect(Config{})
	assert.EqualError(t, err, "DATABASE_URL environment variable is required")
}

func TestLogMode(t *testing.T) {
	t.Setenv("TERRASO_LOG_LEVEL", "DEBUG")
	assert.Equal(t, logger.Info, LogMode())

	t.Setenv("TERRASO_LOG_LEVEL", "info")
	assert.Equal(t, logger.Silent, LogMode())
}

func TestIsIntegrityViolation(t *testing.T) {
	assert.True(t, IsIntegrityViolation(fmt.Errorf("save: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsIntegrityViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsIntegrityViolation(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsIntegrityViolation(errors.New("boom")))
}
