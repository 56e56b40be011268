package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"huddle/internal/client"
	"huddle/internal/signal"
)

func echoCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "echo <text>...",
		Short: "Broadcast a text line to the room",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			c, err := client.Dial(ctx, serverURL, roomName, userName)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.SendEcho(strings.Join(args, " ")); err != nil {
				return err
			}

			env, err := c.ReadUntil(signal.ServerEcho, wait)
			if err != nil {
				fmt.Println("sent, no reply")
				return nil
			}
			var e signal.Echo
			if err := env.Decode(&e); err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", e.PeerID, e.Text)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "how long to wait for a reply")
	return cmd
}
