package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func monitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Stream all chat frames until interrupted",
		Long:  "Connects to chatd and prints every frame addressed to this client until interrupted (Ctrl+C).",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			done := make(chan error, 1)
			go func() {
				done <- streamFrames()
			}()

			select {
			case <-ctx.Done():
				return nil
			case err := <-done:
				return err
			}
		},
	}
}

func streamFrames() error {
	for {
		f, err := conn.recv()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("receive frame: %w", err)
		}

		out, fmtErr := toPrettyJSON(f)
		if fmtErr != nil {
			return fmt.Errorf("format frame: %w", fmtErr)
		}
		fmt.Println(out)
	}
}
