package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/ferry/internal/gofile"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Show the GoFile server the next upload would use",
	Args:  cobra.NoArgs,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, _ []string) error {
	client := gofile.New(
		gofile.WithAPIURL(cfg.Hosting.APIURL),
		gofile.WithTimeout(cfg.Hosting.Timeout),
		gofile.WithUserAgent("ferry/"+version),
		gofile.WithLogger(logger),
	)

	ctx, cancel := signalContext()
	defer cancel()

	server, err := client.SelectServer(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), server)
	return nil
}
