package cmd

import (
	"github.com/spf13/cobra"
)

// version is reported by --version and the liveness endpoint.
const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "ragrelay",
	Short: "Stateless Slack relay for a RAG HTTP endpoint",
	Long: `ragrelay connects Slack to a RAG (Retrieval-Augmented Generation) HTTP
endpoint. Mentions and direct messages are forwarded as queries and the
answers are written back into the originating conversation thread.`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(socketCmd)
}
