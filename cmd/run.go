package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/ingest"
)

// inputFile is the JSON document the run command consumes: the column list
// plus one map per row. Spreadsheet parsing happens upstream.
type inputFile struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

func newRunCmd() *cobra.Command {
	var (
		inputPath string
		urlColumn string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest an input file and run the pipeline",
		Long: `Creates a dataset from a JSON input file and drives it through
extraction and, when every row has text, the summarization and
classification batch stages.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger()

			raw, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("read input %s: %w", inputPath, err)
			}
			var input inputFile
			if err := json.Unmarshal(raw, &input); err != nil {
				return fmt.Errorf("decode input %s: %w", inputPath, err)
			}
			if len(input.Rows) == 0 {
				return fmt.Errorf("input %s has no rows", inputPath)
			}

			ds := ingest.NewDataset(input.Columns, input.Rows)
			if urlColumn == "" {
				urlColumn = ds.URLColumn
			}
			if urlColumn == "" {
				return fmt.Errorf("no url column; pass --url-column")
			}

			machine := appInstance.NewMachine(ds)
			logger.Info("pipeline starting",
				zap.String("dataset", ds.ID),
				zap.String("url_column", urlColumn),
				zap.Int("rows", len(ds.Rows)))

			if err := machine.Start(cmd.Context(), urlColumn); err != nil {
				return fmt.Errorf("run pipeline: %w", err)
			}

			logger.Info("pipeline finished",
				zap.String("dataset", ds.ID),
				zap.String("status", string(ds.Status)))
			fmt.Fprintf(cmd.OutOrStdout(), "dataset %s: %s\n", ds.ID, ds.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "input JSON file with columns and rows")
	cmd.Flags().StringVar(&urlColumn, "url-column", "", "column holding article URLs (default: guessed)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
