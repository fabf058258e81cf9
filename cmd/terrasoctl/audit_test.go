package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/model"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Logs(ctx context.Context, start, end time.Time) ([]audit.Entry, error) {
	args := m.Called(start, end)
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *mockQuerier) LogsByUser(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]audit.Entry, error) {
	args := m.Called(userID, start, end)
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *mockQuerier) LogsByResource(ctx context.Context, resourceID uuid.UUID, start, end time.Time) ([]audit.Entry, error) {
	args := m.Called(resourceID, start, end)
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func (m *mockQuerier) LogsByAction(ctx context.Context, action model.AuditEvent, start, end time.Time) ([]audit.Entry, error) {
	args := m.Called(action, start, end)
	return args.Get(0).([]audit.Entry), args.Error(1)
}

func parseAuditFlags(t *testing.T, args ...string) (auditFilter, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "logs"}
	addAuditLogFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return auditFilterFromFlags(cmd)
}

func TestAuditFilterFromFlags(t *testing.T) {
	t.Run("window ends at until", func(t *testing.T) {
		f, err := parseAuditFlags(t, "--until", "2024-05-02T00:00:00Z", "--since", "48h")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), f.start)
		assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), f.end)
	})

	t.Run("action is case insensitive", func(t *testing.T) {
		f, err := parseAuditFlags(t, "--action", "delete")
		require.NoError(t, err)
		assert.Equal(t, model.AuditDelete, f.action)
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := parseAuditFlags(t, "--action", "PURGE")
		assert.Error(t, err)
	})

	t.Run("one narrowing flag at a time", func(t *testing.T) {
		_, err := parseAuditFlags(t, "--action", "READ", "--user", uuid.NewString())
		assert.EqualError(t, err, "use only one of --user, --resource and --action")
	})

	t.Run("bad user id", func(t *testing.T) {
		_, err := parseAuditFlags(t, "--user", "ana")
		assert.Error(t, err)
	})
}

func TestQueryAuditLogs(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	user := uuid.New()
	site := uuid.New()
	entries := []audit.Entry{{Event: model.AuditChange, UserName: "ana@example.org", Message: "ana@example.org changed site North plot", ClientTime: start}}

	q := &mockQuerier{}
	q.On("LogsByUser", user, start, end).Return(entries, nil)
	q.On("LogsByResource", site, start, end).Return(entries, nil)
	q.On("LogsByAction", model.AuditDelete, start, end).Return([]audit.Entry(nil), nil)
	q.On("Logs", start, end).Return(entries, nil)

	ctx := context.Background()
	got, err := queryAuditLogs(ctx, q, auditFilter{start: start, end: end, user: &user})
	require.NoError(t, err)
	assert.Equal(t, entries, got)
	_, err = queryAuditLogs(ctx, q, auditFilter{start: start, end: end, resource: &site})
	require.NoError(t, err)
	_, err = queryAuditLogs(ctx, q, auditFilter{start: start, end: end, action: model.AuditDelete})
	require.NoError(t, err)
	_, err = queryAuditLogs(ctx, q, auditFilter{start: start, end: end})
	require.NoError(t, err)
	q.AssertExpectations(t)
}

func TestPrintAuditEntries(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	entries := []audit.Entry{{Event: model.AuditDelete, UserName: "ana@example.org", Message: "ana@example.org deleted site North plot", ClientTime: at}}

	var text bytes.Buffer
	require.NoError(t, printAuditEntries(&text, entries, false))
	assert.Contains(t, text.String(), "2024-05-01T08:30:00Z  DELETE")
	assert.Contains(t, text.String(), "deleted site North plot")

	var raw bytes.Buffer
	require.NoError(t, printAuditEntries(&raw, nil, true))
	var decoded []audit.Entry
	require.NoError(t, json.Unmarshal(raw.Bytes(), &decoded))
	assert.Empty(t, decoded)
	assert.Equal(t, "[]\n", raw.String())
}
