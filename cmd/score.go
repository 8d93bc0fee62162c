package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yorulabs/leadgen-cli/internal/icp"
	"github.com/yorulabs/leadgen-cli/internal/model"
	"github.com/yorulabs/leadgen-cli/internal/scorer"
)

var scoreICP string

var scoreCmd = &cobra.Command{
	Use:   "score <run-id>",
	Short: "Score a run's leads against an ICP",
	Long:  "Scores every lead of the run. Defaults to the ICP the run was created with; --icp rescores against a different one.",
	Args:  cobra.ExactArgs(1),
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

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "score")
		}

		name := scoreICP
		if name == "" {
			name = run.ICPName
		}
		icpCfg, err := icp.Load(cfg.ICP.Dir, name)
		if err != nil {
			return err
		}

		res, err := scorer.New(st, icpCfg).ScoreRun(ctx, run.ID)
		if err != nil {
			return err
		}

		if err := st.UpdateRun(ctx, run.ID, model.RunUpdate{LeadsScored: &res.Scored}); err != nil {
			return eris.Wrap(err, "record scored count")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"run_id":       run.ID,
			"icp":          icpCfg.Name,
			"scored":       res.Scored,
			"distribution": res.Distribution,
		})
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreICP, "icp", "", "ICP config name (default: the run's ICP)")
	rootCmd.AddCommand(scoreCmd)
}
