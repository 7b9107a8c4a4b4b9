package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Query chat session state",
	}

	cmd.AddCommand(usersListCmd())
	cmd.AddCommand(usersShowCmd())

	return cmd
}

// --- users list ---

func usersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every currently registered user",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := conn.send(frame{Type: "list_users", Sender: clientName, Timestamp: now()}); err != nil {
				return fmt.Errorf("send list_users: %w", err)
			}

			reply, err := conn.recvUntil(8, func(f frame) bool {
				return f.Type == "list_users_response"
			})
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}

			out, err := formatNames(reply.Content, outputFormat)
			if err != nil {
				return fmt.Errorf("format users: %w", err)
			}
			fmt.Print(out)

			return nil
		},
	}
}

// --- users show ---

func usersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a user's remote address and status",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			target := args[0]

			if err := conn.send(frame{
				Type:      "user_info",
				Sender:    clientName,
				Target:    target,
				Timestamp: now(),
			}); err != nil {
				return fmt.Errorf("send user_info: %w", err)
			}

			reply, err := conn.recvUntil(8, func(f frame) bool {
				return f.Type == "user_info_response" && f.Target == target
			})
			if err != nil {
				return fmt.Errorf("user_info: %w", err)
			}

			out, err := formatUserInfo(target, reply.Content, outputFormat)
			if err != nil {
				return fmt.Errorf("format user info: %w", err)
			}
			fmt.Print(out)

			return nil
		},
	}
}
