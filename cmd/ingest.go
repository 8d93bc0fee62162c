package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yorulabs/leadgen-cli/internal/icp"
	"github.com/yorulabs/leadgen-cli/internal/model"
)

var (
	ingestICP         string
	ingestSource      string
	ingestCSVFile     string
	ingestProfileURLs []string
	ingestLimit       int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest leads from a source without enriching or scoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		icpCfg, err := icp.Load(cfg.ICP.Dir, ingestICP)
		if err != nil {
			return err
		}
		snapshot, err := icpCfg.Snapshot()
		if err != nil {
			return err
		}

		source, err := buildSource(st, icpCfg, ingestSource, ingestCSVFile, ingestProfileURLs, ingestLimit)
		if err != nil {
			return err
		}

		run, err := st.CreateRun(ctx, icpCfg.Name, snapshot, source.Name())
		if err != nil {
			return eris.Wrap(err, "create run")
		}

		status := model.RunStatusIngesting
		if err := st.UpdateRun(ctx, run.ID, model.RunUpdate{Status: &status}); err != nil {
			return eris.Wrap(err, "update run")
		}

		res, err := source.Ingest(ctx, run.ID)
		if err != nil {
			failed := model.RunStatusFailed
			msg := err.Error()
			now := time.Now().UTC()
			_ = st.UpdateRun(ctx, run.ID, model.RunUpdate{Status: &failed, ErrorMessage: &msg, CompletedAt: &now})
			return eris.Wrap(err, "ingest")
		}

		completed := model.RunStatusCompleted
		now := time.Now().UTC()
		if err := st.UpdateRun(ctx, run.ID, model.RunUpdate{
			Status:       &completed,
			LeadsFetched: &res.Fetched,
			CompletedAt:  &now,
		}); err != nil {
			return eris.Wrap(err, "complete run")
		}

		zap.L().Info("ingestion complete",
			zap.String("run_id", run.ID),
			zap.Int("fetched", res.Fetched),
			zap.Int("created", res.Created),
			zap.Int("skipped", res.Skipped),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"run_id":  run.ID,
			"fetched": res.Fetched,
			"created": res.Created,
			"skipped": res.Skipped,
		})
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestICP, "icp", "", "ICP config name (required)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "apollo", "lead source: apollo, csv, apify")
	ingestCmd.Flags().StringVar(&ingestCSVFile, "file", "", "CSV file path (csv source)")
	ingestCmd.Flags().StringSliceVar(&ingestProfileURLs, "profile-url", nil, "LinkedIn profile URL (apify source, repeatable)")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0, "max leads to fetch (0 = no limit)")
	_ = ingestCmd.MarkFlagRequired("icp")
	rootCmd.AddCommand(ingestCmd)
}
