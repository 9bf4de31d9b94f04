package main

import (
	"errors"
	"fmt"

	"github.com/dvloznov/vaultmind/internal/backup"
	infraBQ "github.com/dvloznov/vaultmind/internal/infra/bigquery"
	"github.com/dvloznov/vaultmind/internal/notionsync"
	"github.com/spf13/cobra"
)

func (a *app) newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the ledger to or from Google Cloud Storage",
	}

	push := &cobra.Command{
		Use:   "push [gs://bucket/path]",
		Short: "Upload the ledger; defaults to a timestamped object under gcs.bucket/gcs.prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			uri := a.cfg.BackupURI()
			if len(args) == 1 {
				uri = args[0]
			}
			if uri == "" {
				return errors.New("no destination: pass a gs:// URI or set GCS_BUCKET")
			}

			objects, err := backup.NewGCSObjectStore(ctx)
			if err != nil {
				return err
			}
			defer objects.Close()

			target, err := backup.NewService(objects, nil, a.log).Push(ctx, a.cfg.Ledger.Path, uri)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ledger uploaded to %s\n", target)
			return nil
		},
	}

	pull := &cobra.Command{
		Use:   "pull gs://bucket/path/ledger.csv",
		Short: "Replace the local ledger with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			objects, err := backup.NewGCSObjectStore(ctx)
			if err != nil {
				return err
			}
			defer objects.Close()

			if err := backup.NewService(objects, nil, a.log).Pull(ctx, args[0], a.cfg.Ledger.Path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ledger restored from %s to %s\n", args[0], a.cfg.Ledger.Path)
			return nil
		},
	}

	cmd.AddCommand(push, pull)
	return cmd
}

func (a *app) newMirrorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mirror",
		Short: "Append ledger rows newer than the last mirrored booking to BigQuery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			l, err := a.store().Load(ctx)
			if err != nil {
				return err
			}

			repo, err := infraBQ.NewBigQueryTransactionRepository(ctx, infraBQ.Config{
				ProjectID: a.cfg.BigQuery.ProjectID,
				DatasetID: a.cfg.BigQuery.Dataset,
				Table:     a.cfg.BigQuery.Table,
			})
			if err != nil {
				return err
			}
			defer repo.Close()

			result, err := infraBQ.NewMirror(repo, a.cfg.BigQuery.Currency, nil, a.log).Sync(ctx, l)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Mirrored %d transactions (%d already present)\n", result.Mirrored, result.Skipped)
			return nil
		},
	}
}

func (a *app) newNotifyCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Publish current alerts to the Notion alerts database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := a.signalContext(cmd)
			defer stop()

			if a.cfg.Notion.Token == "" || a.cfg.Notion.DatabaseID == "" {
				return errors.New("Notion is not configured (set NOTION_TOKEN and NOTION_DATABASE_ID)")
			}

			_, found, err := a.evaluate(ctx)
			if err != nil {
				return err
			}

			client := notionsync.NewNotionClient(a.cfg.Notion.Token)
			result, err := notionsync.SyncAlerts(ctx, client, a.cfg.Notion.DatabaseID, found, a.now(), dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Notion alerts: %d created, %d reopened, %d resolved, %d unchanged\n",
				result.Created, result.Reopened, result.Resolved, result.Skipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the changes without writing to Notion")
	return cmd
}
