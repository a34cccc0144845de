package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"martaudit/internal/audit"
	"martaudit/internal/dbt"
	"martaudit/internal/executor"
	"martaudit/internal/generator"
	"martaudit/internal/report"
	"martaudit/internal/warehouse"
)

var runCmd = &cobra.Command{
	Use:   "run [model...]",
	Short: "Run a data quality audit",
	Long: "Run a data quality audit against the configured warehouse. With no " +
		"arguments every configured mart model is audited; otherwise only the " +
		"named models are.",
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	modelsToAudit := args
	if len(modelsToAudit) == 0 {
		modelsToAudit = cfg.DBT.MartModels
	}
	if len(modelsToAudit) == 0 {
		return fmt.Errorf("no models to audit: pass model names or set dbt.mart_models in the config")
	}

	logger.Info("Starting data quality audit", map[string]interface{}{
		"models": len(modelsToAudit),
	})

	whConfig := warehouse.Config{
		Host:     cfg.Warehouse.Host,
		Port:     cfg.Warehouse.Port,
		Database: cfg.Warehouse.Database,
		User:     cfg.Warehouse.User,
		Password: cfg.Warehouse.Password,
		Schema:   cfg.Warehouse.Schema,
		SSLMode:  cfg.Warehouse.SSLMode,
		Timeout:  time.Duration(cfg.Audit.QueryTimeoutSecs) * time.Second,
	}
	if err := warehouse.ValidateConfig(whConfig); err != nil {
		return fmt.Errorf("invalid warehouse configuration: %w", err)
	}

	wh := warehouse.NewService(whConfig, logger)
	if err := wh.Connect(); err != nil {
		return err
	}
	defer wh.Close()

	if err := wh.TestConnection(); err != nil {
		return err
	}

	llmClient, err := generator.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
	if err != nil {
		return err
	}

	writer, err := report.NewWriter(cfg.Audit.OutputDir, logger)
	if err != nil {
		return err
	}

	runner := audit.NewRunner(audit.Options{
		Parser:      dbt.NewParser(cfg.DBT.ModelsPath, logger),
		Metadata:    wh,
		Generator:   generator.NewGenerator(llmClient, cfg.Warehouse.Schema, logger),
		Executor:    executor.NewExecutor(wh, cfg.Audit.MaxDefectExamples, logger),
		Reports:     writer,
		SampleLimit: cfg.Audit.SampleLimit,
		Logger:      logger,
	})

	runReport, err := runner.Run(cmd.Context(), modelsToAudit)
	if err != nil {
		return err
	}

	printRunReport(cmd, runReport)

	if len(runReport.Outcomes) == 0 {
		return fmt.Errorf("all %d model(s) failed to audit", len(runReport.Skipped))
	}
	return nil
}

// printRunReport renders the console summary table
func printRunReport(cmd *cobra.Command, runReport *audit.RunReport) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Audit Results:")
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tTESTS\tPASSED\tFAILED\tERRORS\tDEFECTS\tCRITICAL\tHIGH")
	fmt.Fprintln(w, "-----\t-----\t------\t------\t------\t-------\t--------\t----")

	for _, outcome := range runReport.Outcomes {
		s := outcome.Summary
		failed := fmt.Sprintf("%d", s.Failed)
		if s.Failed > 0 {
			failed = color.RedString("%d", s.Failed)
		}
		passed := fmt.Sprintf("%d", s.Passed)
		if s.Passed > 0 {
			passed = color.GreenString("%d", s.Passed)
		}
		errors := fmt.Sprintf("%d", s.Errors)
		if s.Errors > 0 {
			errors = color.YellowString("%d", s.Errors)
		}

		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
			outcome.ModelName, s.TotalTests, passed, failed, errors,
			s.TotalDefects, s.CriticalFailures, s.HighFailures)
	}
	_ = w.Flush()

	for model, err := range runReport.Skipped {
		fmt.Fprintf(out, "%s %s: %v\n", color.RedString("skipped"), model, err)
	}

	fmt.Fprintln(out)
	for _, outcome := range runReport.Outcomes {
		fmt.Fprintf(out, "Report: %s\n", outcome.ReportPath)
	}
	if runReport.SummaryPath != "" {
		fmt.Fprintf(out, "Summary: %s\n", runReport.SummaryPath)
	}
}
