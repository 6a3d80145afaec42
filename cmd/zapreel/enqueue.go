package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zapreel/zapreel/domain"
	"github.com/zapreel/zapreel/queue"
)

// enqueueCmd publishes a voice job to the job runner from a transcript file,
// mostly for manual pipeline runs and smoke tests.
func enqueueCmd() *cobra.Command {
	var (
		videoID   string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "enqueue <transcript.json>",
		Short: "Dispatch a voice-cloning job from a transcript file",
		Long: `Reads a transcript JSON file of the form

  {"messages": [{"text": "...", "from_user": "..."}, ...],
   "voice_mapping": {"<from_user>": "<voice-key>", ...}}

and publishes it to the job runner queue.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}

			var job domain.VoiceJob
			if err := json.Unmarshal(data, &job); err != nil {
				return fmt.Errorf("parse transcript: %w", err)
			}
			if len(job.Messages) == 0 {
				return fmt.Errorf("transcript has no messages")
			}
			if videoID != "" {
				job.VideoID = videoID
			}
			if job.VideoID == "" {
				job.VideoID = uuid.NewString()
			}
			job.UseVoiceCloning = true
			if outputDir != "" {
				job.OutputDir = outputDir
			}

			publisher := queue.NewPublisher(queue.LoadBrokerConfig())
			requestID, err := publisher.DispatchVoiceJob(cmd.Context(), &job, nil)
			if err != nil {
				return err
			}
			fmt.Printf("dispatched request %s (video %s, %d messages)\n", requestID, job.VideoID, len(job.Messages))
			return nil
		},
	}

	cmd.Flags().StringVar(&videoID, "video-id", "", "Override the transcript's video id")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Worker audio output directory")
	return cmd
}
