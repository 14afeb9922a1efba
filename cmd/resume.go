package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newResumeCmd() *cobra.Command {
	var (
		datasetID  string
		dismissals []string
		titleOnly  []string
		manual     []string
	)

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Apply manual edits to a dataset and resume the pipeline",
		Long: `Loads a persisted dataset snapshot, applies manual interventions
(dismissals, title-only fallbacks, pasted text), and resumes: if every
remaining row has text the batch stages run, otherwise the dataset stays
awaiting manual input.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger()

			machine, err := appInstance.LoadMachine(cmd.Context(), datasetID)
			if err != nil {
				return fmt.Errorf("load dataset %s: %w", datasetID, err)
			}

			for _, id := range dismissals {
				if err := machine.DismissRow(id); err != nil {
					return err
				}
			}
			for _, id := range titleOnly {
				if err := machine.UseTitleFallback(id); err != nil {
					return err
				}
			}
			for _, pair := range manual {
				id, path, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("invalid --manual %q, expected row-id=textfile", pair)
				}
				text, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read manual text %s: %w", path, err)
				}
				if err := machine.SetManualText(id, string(text)); err != nil {
					return err
				}
			}

			ds := machine.Dataset()
			logger.Info("resuming dataset",
				zap.String("dataset", ds.ID),
				zap.Int("dismissed", len(dismissals)),
				zap.Int("title_only", len(titleOnly)),
				zap.Int("manual", len(manual)))

			if err := machine.ResumeAfterManual(cmd.Context()); err != nil {
				return fmt.Errorf("resume pipeline: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "dataset %s: %s\n", ds.ID, ds.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetID, "dataset", "", "dataset id to resume")
	cmd.Flags().StringArrayVar(&dismissals, "dismiss", nil, "row id to dismiss (repeatable)")
	cmd.Flags().StringArrayVar(&titleOnly, "title-only", nil, "row id to settle with its title (repeatable)")
	cmd.Flags().StringArrayVar(&manual, "manual", nil, "row-id=textfile with manually supplied text (repeatable)")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}
