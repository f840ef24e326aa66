package main

import (
	"fmt"
	"os"

	"github.com/fentz26/planforge/internal/backend"
	"github.com/fentz26/planforge/internal/config"
	"github.com/fentz26/planforge/internal/sentry"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "planforge",
	Short: "PlanForge - AI project planning in the terminal",
	Long: `PlanForge turns a goal into a dependency-ordered project plan, lets you
refine each task on a board, and keeps the project in sync with collaborators.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if backendFlag != "" {
			c.Backend = backendFlag
		}
		cfg = c

		if err := sentry.Init(cfg.SentryDSN, backend.Version); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: sentry disabled: %v\n", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("planforge %s\n", backend.Version)
	},
}

var (
	configPath  string
	backendFlag string

	cfg *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Backend base URL (overrides config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(inviteCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	defer sentry.RecoverPanic()

	err := rootCmd.Execute()
	sentry.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
