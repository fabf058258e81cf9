package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/techmatters/terraso-go/pkg/config"
	"github.com/techmatters/terraso-go/pkg/db"
	"github.com/techmatters/terraso-go/pkg/storage"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Dump the database to a timestamped archive",
	Long: `Dump the database with pg_dump in custom format.

The archive is written to --out-dir as <label>.dump. With --upload it is
also copied to the db_backup_s3_bucket bucket under backups/.

Example:
  terrasoctl backup
  terrasoctl backup --out-dir /backup --label nightly --upload`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out-dir")
		label, _ := cmd.Flags().GetString("label")
		upload, _ := cmd.Flags().GetBool("upload")

		if label == "" {
			label = time.Now().UTC().Format("2006-01-02T15-04-05Z")
		}
		archive, err := runBackup(outDir, label)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Printf("Backup written to %s\n", archive)

		if upload {
			key, err := uploadBackup(cmd, archive)
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			fmt.Printf("Uploaded to %s\n", key)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().StringP("out-dir", "o", ".", "Output directory")
	backupCmd.Flags().StringP("label", "l", "", "Label for archive filename (default: timestamp)")
	backupCmd.Flags().Bool("upload", false, "Copy the archive to the backup bucket")
}

func runBackup(outDir, label string) (string, error) {
	dbURL := db.URL()
	if dbURL == "" {
		return "", fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if err := os.MkdirAll(outDir, 0770); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	archive := filepath.Join(outDir, label+".dump")
	fmt.Println("Exporting database...")
	pgDump := exec.Command("pg_dump", "-Fc", "--no-owner", "-f", archive, dbURL)
	pgDump.Stderr = os.Stderr
	if err := pgDump.Run(); err != nil {
		return "", fmt.Errorf("pg_dump failed: %w", err)
	}
	return archive, nil
}

func uploadBackup(cmd *cobra.Command, archive string) (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.DBBackupS3Bucket == "" {
		return "", fmt.Errorf("db_backup_s3_bucket is not configured")
	}

	f, err := os.Open(archive)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	client, err := storage.NewS3Client(cmd.Context(), cfg)
	if err != nil {
		return "", err
	}
	key := "backups/" + filepath.Base(archive)
	if err := storage.NewS3Store(client, cfg.DBBackupS3Bucket).Put(cmd.Context(), key, f, info.Size(), "application/octet-stream"); err != nil {
		return "", err
	}
	return "s3://" + cfg.DBBackupS3Bucket + "/" + key, nil
}
