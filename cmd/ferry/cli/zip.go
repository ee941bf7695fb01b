package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/ferry"
)

var zipName string

var zipCmd = &cobra.Command{
	Use:   "zip <file>...",
	Short: "Upload files to GoFile as a single zip archive",
	Long: `Zip folds the given files into one zip archive, in argument order, and
uploads it to GoFile. Files with the same name get a " (N)" suffix.

Examples:
  ferry zip ./a.txt ./b.txt
  ferry zip ./photos/*.jpg --name holiday`,
	Args: cobra.MinimumNArgs(1),
	RunE: runZip,
}

func init() {
	zipCmd.Flags().StringVarP(&zipName, "name", "n", "", "Archive filename (.zip is appended when missing)")
	rootCmd.AddCommand(zipCmd)
}

func runZip(cmd *cobra.Command, args []string) error {
	if len(args) > ferry.MaxChainDepth {
		return fmt.Errorf("too many files: %d (max %d)", len(args), ferry.MaxChainDepth)
	}

	// Build a reply chain: the command replies to the first file, which
	// replies to the second, and so on.
	var next *ferry.Message
	for i := len(args) - 1; i >= 0; i-- {
		msg, err := fileMessage(int64(i+1), args[i])
		if err != nil {
			return err
		}
		msg.ReplyTo = next
		next = msg
	}
	command := &ferry.Message{ID: int64(len(args) + 1), ChatID: 1, ReplyTo: next}

	job, err := ferry.JobFromChain(command, zipName)
	if err != nil {
		return err
	}

	p, err := newPipeline(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if _, err := p.Run(ctx, job); err != nil {
		return &jobsFailedError{failed: 1, total: 1}
	}
	return nil
}
