package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "procurement_service",
	Short: "Procurement service for delivery notes and file attachments",
	Long: `A service that records vendor deliveries against purchase orders,
manages invoice file attachments in object storage, and processes
virus scan results from Azure Service Bus.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize()
}
