package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/techmatters/terraso-go/pkg/config"
	"github.com/techmatters/terraso-go/pkg/db"
	"github.com/techmatters/terraso-go/pkg/storage"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Load a backup archive into the database",
	Long: `Restore a pg_dump custom-format archive with pg_restore.

Existing objects are dropped first. With --from-s3 the argument is a key in
the db_backup_s3_bucket bucket and the archive is downloaded before the
restore runs.

Example:
  terrasoctl restore ./2024-05-01T02-00-00Z.dump
  terrasoctl restore --from-s3 backups/nightly.dump`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbURL := db.URL()
		if dbURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required")
		}
		archive := args[0]

		fromS3, _ := cmd.Flags().GetBool("from-s3")
		if fromS3 {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DBBackupS3Bucket == "" {
				return fmt.Errorf("db_backup_s3_bucket is not configured")
			}
			client, err := storage.NewS3Client(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			dir, err := os.MkdirTemp("", "terraso-restore-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)

			archive, err = fetchBackup(cmd.Context(), storage.NewS3Store(client, cfg.DBBackupS3Bucket), archive, dir)
			if err != nil {
				return fmt.Errorf("download failed: %w", err)
			}
		}

		fmt.Printf("Restoring %s...\n", archive)
		pgRestore := exec.CommandContext(cmd.Context(), "pg_restore", restoreArgs(dbURL, archive)...)
		pgRestore.Stdout = os.Stdout
		pgRestore.Stderr = os.Stderr
		if err := pgRestore.Run(); err != nil {
			return fmt.Errorf("pg_restore failed: %w", err)
		}
		fmt.Println("Restore complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().Bool("from-s3", false, "Treat the argument as a key in the backup bucket")
}

func restoreArgs(dbURL, archive string) []string {
	return []string{"--clean", "--if-exists", "--no-owner", "-d", dbURL, archive}
}

// fetchBackup copies key from the store into dir and returns the local path.
func fetchBackup(ctx context.Context, store storage.ObjectStore, key, dir string) (string, error) {
	body, err := store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	local := filepath.Join(dir, filepath.Base(key))
	f, err := os.Create(local)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return "", err
	}
	return local, f.Close()
}
