package commands

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

func Execute() error {
	root := &cobra.Command{
		Use:           "huddled",
		Short:         "Video-conference signaling and forwarding server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./huddle.yaml if present)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error, none)")

	root.AddCommand(serveCmd())
	return root.Execute()
}
