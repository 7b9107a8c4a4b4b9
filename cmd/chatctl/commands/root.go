package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// conn is the chat client, initialized in PersistentPreRunE.
	conn *client

	// outputFormat controls the output format for session-query commands.
	outputFormat string

	// serverAddr is the chatd daemon's host:port for the WebSocket dial.
	serverAddr string

	// chatPath is the WebSocket endpoint path.
	chatPath string

	// clientName is the display name chatctl registers under.
	clientName string
)

// rootCmd is the top-level cobra command for chatctl.
var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "CLI client for the chatd daemon",
	Long:  "chatctl connects to chatd over WebSocket and issues chat-protocol commands.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "version" || conn != nil {
			return nil
		}

		c, err := dial(serverAddr, chatPath, clientName)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", serverAddr, err)
		}
		conn = c
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:8080",
		"chatd daemon address (host:port)")
	rootCmd.PersistentFlags().StringVar(&chatPath, "path", "/chat",
		"chatd WebSocket endpoint path")
	rootCmd.PersistentFlags().StringVar(&clientName, "name", defaultClientName(),
		"display name chatctl registers under")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(broadcastCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// defaultClientName picks a recognizable default registration name so
// `chatctl users list` works without an explicit --name on a first try.
func defaultClientName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "chatctl"
	}
	return "chatctl@" + host
}

// Execute runs the root command and exits with code 1 on error. The
// WebSocket connection established by PersistentPreRunE, if any, is
// closed once the whole command tree (including an interactive shell
// session) has finished running.
func Execute() {
	err := rootCmd.Execute()

	if conn != nil {
		_ = conn.close()
		conn = nil
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
