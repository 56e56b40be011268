package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"huddle/internal/client"
)

// join: attach to a room and print every event until interrupted.
func joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join",
		Short: "Join a room and watch its events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := client.Dial(ctx, serverURL, roomName, userName)
			if err != nil {
				return err
			}
			defer c.Close()

			fmt.Printf("joined room %s as %s (%d codecs)\n",
				c.Init.RoomID, c.Init.PeerID, len(c.Init.RouterRTPCapabilities))

			go func() {
				<-ctx.Done()
				c.Close()
			}()

			for {
				env, err := c.Read()
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				fmt.Printf("%s %s\n", env.Action, string(env.Payload))
			}
		},
	}
}
