package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "credence",
	Short: "Evidence-based trust tracking for learned concepts",
	Long: "Credence derives trust in a person's grasp of concepts from an append-only " +
		"log of verification events, with decay, graph propagation, and calibration auditing.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(calibrateCmd)
}
