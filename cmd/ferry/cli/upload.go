package cli

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/ferry"
)

var uploadName string

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload files to GoFile one by one",
	Long: `Upload sends each file to GoFile as a separate upload and prints its
download link. Up to "concurrency" files are uploaded at once.

Examples:
  ferry upload ./report.pdf
  ferry upload ./report.pdf --name "Q3 report.pdf"
  ferry upload ./photos/*.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadName, "name", "n", "", "Upload under a custom filename (single file only)")
	rootCmd.AddCommand(uploadCmd)
}

// jobsFailedError reports how many jobs of a batch failed. Each failure has
// already been printed by the pipeline.
type jobsFailedError struct {
	failed int
	total  int
}

func (e *jobsFailedError) Error() string {
	return fmt.Sprintf("%d of %d uploads failed", e.failed, e.total)
}

func runUpload(cmd *cobra.Command, args []string) error {
	named := cmd.Flags().Changed("name")
	if named && len(args) > 1 {
		return errors.New("--name can only be used with a single file")
	}

	jobs := make([]ferry.Job, 0, len(args))
	for i, path := range args {
		msg, err := fileMessage(int64(2*i+1), path)
		if err != nil {
			return err
		}
		command := &ferry.Message{ID: int64(2*i + 2), ReplyTo: msg}

		var job ferry.Job
		if named {
			job, err = ferry.JobFromReplyNamed(command, uploadName)
		} else {
			job, err = ferry.JobFromReply(command)
		}
		if err != nil {
			return err
		}
		job.Chat.ChatID = int64(i + 1)
		jobs = append(jobs, job)
	}

	p, err := newPipeline(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var failed atomic.Int32
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			if _, err := p.Run(ctx, job); err != nil {
				logger.Debug("upload failed", "ref", job.Items[0].Ref, "error", err)
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := int(failed.Load()); n > 0 {
		return &jobsFailedError{failed: n, total: len(jobs)}
	}
	return nil
}
