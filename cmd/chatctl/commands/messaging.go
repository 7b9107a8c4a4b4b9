package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errUnknownStatus is returned when a status argument is not one of the
// three canonical wire literals.
var errUnknownStatus = errors.New("unknown status, expected ACTIVO, OCUPADO, or INACTIVO")

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <ACTIVO|OCUPADO|INACTIVO>",
		Short: "Change this client's own presence status",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			value := args[0]
			if !isKnownStatus(value) {
				return fmt.Errorf("%w: %q", errUnknownStatus, value)
			}

			if err := conn.send(frame{
				Type:      "change_status",
				Sender:    clientName,
				Content:   value,
				Timestamp: now(),
			}); err != nil {
				return fmt.Errorf("send change_status: %w", err)
			}

			reply, err := conn.recvUntil(8, func(f frame) bool {
				return f.Type == "status_update" || f.Type == "error"
			})
			if err != nil {
				return fmt.Errorf("change status: %w", err)
			}
			if reply.Type == "error" {
				return fmt.Errorf("change status: %v", reply.Content)
			}

			fmt.Printf("status changed to %s\n", value)
			return nil
		},
	}
}

func isKnownStatus(s string) bool {
	switch s {
	case "ACTIVO", "OCUPADO", "INACTIVO":
		return true
	default:
		return false
	}
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <name> <message...>",
		Short: "Send a private message to one user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			target := args[0]
			content := joinArgs(args[1:])

			if err := conn.send(frame{
				Type:      "private",
				Sender:    clientName,
				Target:    target,
				Content:   content,
				Timestamp: now(),
			}); err != nil {
				return fmt.Errorf("send private: %w", err)
			}

			reply, err := conn.recvUntil(4, func(f frame) bool {
				return f.Type == "error"
			})
			if err == nil && reply.Type == "error" {
				return fmt.Errorf("private message: %v", reply.Content)
			}

			return nil
		},
	}
}

func broadcastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast <message...>",
		Short: "Broadcast a message to every connected user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			content := joinArgs(args)

			if err := conn.send(frame{
				Type:      "broadcast",
				Sender:    clientName,
				Content:   content,
				Timestamp: now(),
			}); err != nil {
				return fmt.Errorf("send broadcast: %w", err)
			}

			// Drain this client's own echo of the broadcast (the canonical
			// variant delivers broadcasts back to the sender).
			_, _ = conn.recvUntil(1, func(f frame) bool { return f.Type == "broadcast" })

			return nil
		},
	}
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}
