package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ignite/bulletin-sync/internal/report"
	"github.com/ignite/bulletin-sync/internal/service/contacts"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Reconcile a record file into the contact directory",
	Long: `Reads a JSON array of signup records from a local path or an s3:// URI,
creates or updates the matching directory contacts and tags every
interested contact with the configured category.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if importFile == "" {
			return errors.New("--file is required")
		}
		ctx := cmd.Context()
		a, err := buildApp(ctx, cfg, paths{imports: true})
		if err != nil {
			return err
		}
		defer a.close()
		return runImport(ctx, cmd.OutOrStdout(), a.runner, a.storage, importFile)
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "Record file: local path, file:// or s3:// URI")
}

type importRunner interface {
	Import(ctx context.Context, records []contacts.RawRecord) (*contacts.ImportReport, error)
}

type recordLoader interface {
	LoadRecords(ctx context.Context, source string) ([]map[string]any, error)
}

func runImport(ctx context.Context, out io.Writer, r importRunner, loader recordLoader, source string) error {
	records, err := loader.LoadRecords(ctx, source)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}

	rep, err := r.Import(ctx, records)
	if rep != nil {
		summary, renderErr := report.NewRenderer().Import(rep)
		if renderErr != nil {
			return renderErr
		}
		fmt.Fprint(out, summary)
	}
	if err != nil {
		return err
	}
	if rep.TagError != "" {
		return fmt.Errorf("tagging failed: %s", rep.TagError)
	}
	return nil
}
