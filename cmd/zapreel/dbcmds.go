package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zapreel/zapreel/domain"
	"github.com/zapreel/zapreel/shared/jsonutil"
	"github.com/zapreel/zapreel/store"
)

// initDBCmd applies the embedded schema.
func initDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the voices and voice_mappings tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, pool, err := connectStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := st.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			fmt.Println("schema applied")
			return nil
		},
	}
}

// seedFile is the JSON shape of a voice-mapping seed file.
type seedFile struct {
	Mappings []struct {
		VoiceID   string `json:"voice_id"`
		VoiceName string `json:"voice_name"`
		VoiceFile string `json:"voice_file"`
		IsDefault bool   `json:"is_default"`
	} `json:"mappings"`
}

// seedMappingsCmd loads reference voice mappings from a JSON file. Existing
// voice ids are reported and skipped rather than overwritten.
func seedMappingsCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-mappings",
		Short: "Insert voice mappings from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			var seeds seedFile
			if err := json.Unmarshal(data, &seeds); err != nil {
				return fmt.Errorf("parse seed file: %w", err)
			}
			if len(seeds.Mappings) == 0 {
				return fmt.Errorf("seed file has no mappings")
			}

			st, pool, err := connectStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			inserted := 0
			for _, seed := range seeds.Mappings {
				mapping := &domain.VoiceMapping{
					VoiceID:   seed.VoiceID,
					VoiceName: seed.VoiceName,
					VoiceFile: seed.VoiceFile,
					IsDefault: seed.IsDefault,
				}
				if err := st.CreateMapping(ctx, mapping); err != nil {
					if store.IsUniqueViolation(err) {
						fmt.Printf("skipped %s (already exists)\n", seed.VoiceID)
						continue
					}
					return fmt.Errorf("insert mapping %s: %w", seed.VoiceID, err)
				}
				inserted++
				fmt.Printf("inserted %s -> %s\n", seed.VoiceID, seed.VoiceFile)
			}
			fmt.Printf("done: %d inserted, %d total\n", inserted, len(seeds.Mappings))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "voice_mappings.json", "JSON file with voice mappings")
	return cmd
}

// statusCmd prints the voice progress of one video.
func statusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <video-id>",
		Short: "Show voice synthesis progress for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			videoID := args[0]

			st, pool, err := connectStore(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			status, err := st.StatusForVideo(ctx, videoID)
			if err != nil {
				return err
			}

			if asJSON {
				fmt.Println(jsonutil.MustMarshalIndent(status))
				return nil
			}

			fmt.Printf("video %s\n", videoID)
			fmt.Printf("  total:     %d\n", status.Total)
			fmt.Printf("  completed: %d\n", status.Completed)
			fmt.Printf("  failed:    %d\n", status.Failed)
			fmt.Printf("  pending:   %d\n", status.Pending)
			fmt.Printf("  barrier:   %v\n", status.AllCompleted())

			if status.Failed > 0 {
				failed, err := st.FailedVoices(ctx, videoID)
				if err != nil {
					return err
				}
				fmt.Println("failed rows:")
				for _, row := range failed {
					msg := ""
					if row.ErrorMessage != nil {
						msg = *row.ErrorMessage
					}
					fmt.Printf("  %s (%s): %s\n", row.ID, row.CharacterName, msg)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")
	return cmd
}
