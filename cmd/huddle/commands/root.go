package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	roomName  string
	userName  string
)

func Execute() error {
	root := &cobra.Command{
		Use:   "huddle",
		Short: "Probe client for the huddle conference server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if userName == "" {
				return fmt.Errorf("user name required (--user)")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "ws://127.0.0.1:3001", "server URL")
	root.PersistentFlags().StringVar(&roomName, "room", "", "room to join (server default when empty)")
	root.PersistentFlags().StringVarP(&userName, "user", "u", "", "user name to join as")

	root.AddCommand(joinCmd(), echoCmd())
	return root.Execute()
}
