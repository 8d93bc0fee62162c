package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yorulabs/leadgen-cli/internal/enrich"
	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/pkg/clay"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <run-id>",
	Short: "Send a run's leads to the Clay enrichment webhook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Clay.WebhookURL == "" {
			return eris.New("clay webhook URL is required (LEADGEN_CLAY_WEBHOOK_URL)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		clayClient := clay.NewClient(cfg.Clay.WebhookURL, clay.WithAuthKey(cfg.Clay.Key))
		d := enrich.NewDispatcher(clayClient, st, enrich.WithBatchSize(cfg.Clay.BatchSize))

		res, err := d.EnrichRun(ctx, run.ID)
		if err != nil {
			return err
		}

		if err := st.UpdateRun(ctx, run.ID, model.RunUpdate{LeadsEnriched: &res.Sent}); err != nil {
			return eris.Wrap(err, "record enriched count")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
