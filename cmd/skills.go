package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yorulabs/leadgen-cli/internal/skills"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Discover and run packaged skills",
	Long:  "Skills are directories under the skills root holding a SKILL.md manifest plus optional scripts, references, and assets.",
}

// -- skills list --

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available skills",
	RunE: func(cmd *cobra.Command, _ []string) error {
		loader := skills.NewLoader(cfg.Skills.Dir)
		found, err := loader.List()
		if err != nil {
			return eris.Wrap(err, "skills list")
		}

		if len(found) == 0 {
			fmt.Fprintln(os.Stderr, "No skills found.")
			return nil
		}

		formatSkillsList(os.Stdout, found)
		return nil
	},
}

// -- skills show --

var skillsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a skill's manifest, instructions, and resources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		skill, err := skills.NewLoader(cfg.Skills.Dir).Load(args[0])
		if err != nil {
			return eris.Wrap(err, "skills show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(skill)
	},
}

// -- skills run --

var skillsRunParams string

var skillsRunCmd = &cobra.Command{
	Use:   "run <name> <script>",
	Short: "Run a skill script",
	Long:  "Executes scripts/<script> of the named skill as a subprocess. --params is passed to the script as one JSON argument.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params map[string]any
		if skillsRunParams != "" {
			if err := json.Unmarshal([]byte(skillsRunParams), &params); err != nil {
				return eris.Wrap(err, "skills run: parse --params")
			}
		}

		executor := skills.NewExecutor(
			skills.NewLoader(cfg.Skills.Dir),
			skills.WithTimeout(time.Duration(cfg.Skills.ScriptTimeoutSecs)*time.Second),
			skills.WithPythonPath(cfg.Skills.PythonPath),
		)

		res, err := executor.ExecuteScript(cmd.Context(), args[0], args[1], params)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return eris.Errorf("script exited with code %d", res.ExitCode)
		}
		return nil
	},
}

// -- skills resource --

var skillsResourceCmd = &cobra.Command{
	Use:   "resource <name> <path>",
	Short: "Print a skill resource file to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := skills.NewLoader(cfg.Skills.Dir).ResourcePath(args[0], args[1])
		if err != nil {
			return eris.Wrap(err, "skills resource")
		}

		f, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "skills resource: open %s", path)
		}
		defer f.Close()

		_, err = io.Copy(os.Stdout, f)
		return err
	},
}

func init() {
	skillsRunCmd.Flags().StringVar(&skillsRunParams, "params", "", "JSON object passed to the script as its argument")

	skillsCmd.AddCommand(skillsListCmd)
	skillsCmd.AddCommand(skillsShowCmd)
	skillsCmd.AddCommand(skillsRunCmd)
	skillsCmd.AddCommand(skillsResourceCmd)
	rootCmd.AddCommand(skillsCmd)
}

// formatSkillsList writes a tabular list of skills to w.
func formatSkillsList(out io.Writer, found []skills.Skill) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tVERSION\tSCRIPTS\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "----\t-------\t-------\t-----------")

	for _, s := range found {
		desc := s.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Name, s.Version, len(s.Resources["scripts"]), desc)
	}
	_ = w.Flush()
}
