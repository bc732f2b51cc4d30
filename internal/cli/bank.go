package cli

import (
	"fmt"

	"history-stairs/internal/bank"
	"history-stairs/internal/config"
	"history-stairs/internal/infra/postgres"
	"github.com/spf13/cobra"
)

// NewBankCmd groups question bank maintenance commands.
func NewBankCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Inspect and import the question bank",
	}
	cmd.AddCommand(newBankCheckCmd())
	cmd.AddCommand(newBankImportCmd(configPath))
	return cmd
}

func newBankCheckCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a question file (the built-in bank when --file is empty)",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bank.Load(cmd.Context(), bank.NewFileLoader(file))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d questions ok\n", b.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML or JSON question file")
	return cmd
}

func newBankImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the questions table with a question file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			b, err := bank.Load(cmd.Context(), bank.NewFileLoader(file))
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()
			if err := postgres.ImportQuestions(cmd.Context(), db, b.Questions()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions\n", b.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML or JSON question file (built-in bank when empty)")
	return cmd
}
