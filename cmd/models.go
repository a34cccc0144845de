package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"martaudit/internal/dbt"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect auditable dbt models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models in the configured dbt marts directory",
	RunE:  runModelsList,
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	rootCmd.AddCommand(modelsCmd)
}

func runModelsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	parser := dbt.NewParser(cfg.DBT.ModelsPath, logger)
	names, err := parser.ListModels()
	if err != nil {
		return err
	}

	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No models found.")
		return nil
	}

	configured := make(map[string]bool, len(cfg.DBT.MartModels))
	for _, name := range cfg.DBT.MartModels {
		configured[name] = true
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tCONFIGURED")
	fmt.Fprintln(w, "-----\t----------")
	for _, name := range names {
		mark := ""
		if configured[name] {
			mark = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\n", name, mark)
	}
	return w.Flush()
}
