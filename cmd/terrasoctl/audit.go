package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/techmatters/terraso-go/pkg/audit"
	"github.com/techmatters/terraso-go/pkg/model"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the audit log",
}

var auditLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List audit entries in a time window",
	Long: `List audit entries recorded in AUDIT_DATABASE_URL, oldest first.

At most one of --user, --resource or --action narrows the result.

Example:
  terrasoctl audit logs --since 24h
  terrasoctl audit logs --user 8b0f3c5e-5a3b-4d8c-9a3e-2f4f0b6e7c11 --json
  terrasoctl audit logs --action DELETE --since 168h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := auditFilterFromFlags(cmd)
		if err != nil {
			return err
		}
		store, err := audit.NewStore()
		if err != nil {
			return fmt.Errorf("failed to open audit database: %w", err)
		}
		if store == nil {
			return errors.New("AUDIT_DATABASE_URL is not set")
		}
		defer store.Close()

		entries, err := queryAuditLogs(cmd.Context(), store, f)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		return printAuditEntries(cmd.OutOrStdout(), entries, asJSON)
	},
}

type auditFilter struct {
	start, end time.Time
	user       *uuid.UUID
	resource   *uuid.UUID
	action     model.AuditEvent
}

func auditFilterFromFlags(cmd *cobra.Command) (auditFilter, error) {
	since, _ := cmd.Flags().GetDuration("since")
	until, _ := cmd.Flags().GetString("until")
	user, _ := cmd.Flags().GetString("user")
	resource, _ := cmd.Flags().GetString("resource")
	action, _ := cmd.Flags().GetString("action")

	f := auditFilter{end: time.Now().UTC()}
	if until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return f, fmt.Errorf("--until: %w", err)
		}
		f.end = t
	}
	f.start = f.end.Add(-since)

	set := 0
	if user != "" {
		id, err := uuid.Parse(user)
		if err != nil {
			return f, fmt.Errorf("--user: %w", err)
		}
		f.user = &id
		set++
	}
	if resource != "" {
		id, err := uuid.Parse(resource)
		if err != nil {
			return f, fmt.Errorf("--resource: %w", err)
		}
		f.resource = &id
		set++
	}
	if action != "" {
		f.action = model.AuditEvent(strings.ToUpper(action))
		switch f.action {
		case model.AuditCreate, model.AuditRead, model.AuditChange, model.AuditDelete, model.AuditAuth:
		default:
			return f, fmt.Errorf("--action: unknown event %q", action)
		}
		set++
	}
	if set > 1 {
		return f, errors.New("use only one of --user, --resource and --action")
	}
	return f, nil
}

func queryAuditLogs(ctx context.Context, q audit.Querier, f auditFilter) ([]audit.Entry, error) {
	switch {
	case f.user != nil:
		return q.LogsByUser(ctx, *f.user, f.start, f.end)
	case f.resource != nil:
		return q.LogsByResource(ctx, *f.resource, f.start, f.end)
	case f.action != "":
		return q.LogsByAction(ctx, f.action, f.start, f.end)
	}
	return q.Logs(ctx, f.start, f.end)
}

func printAuditEntries(w io.Writer, entries []audit.Entry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []audit.Entry{}
		}
		return enc.Encode(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %-6s  %-24s  %s\n",
			e.ClientTime.UTC().Format(time.RFC3339), e.Event, e.UserName, e.Message)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditLogsCmd)
	addAuditLogFlags(auditLogsCmd)
}

func addAuditLogFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("since", 24*time.Hour, "Window length ending at --until")
	cmd.Flags().String("until", "", "Window end as RFC3339 (default now)")
	cmd.Flags().String("user", "", "Only entries by this user id")
	cmd.Flags().String("resource", "", "Only entries about this resource id")
	cmd.Flags().String("action", "", "Only entries of this event (CREATE, READ, CHANGE, DELETE, AUTH)")
	cmd.Flags().Bool("json", false, "Print entries as JSON")
}
