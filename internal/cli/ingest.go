package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/freight-commission-ledger/internal/domain/document"
	"github.com/spf13/cobra"
)

func newIngestCommand(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Publish PDF files to the document intake topic",
		Long: `Publishes each file the way the email fetcher does. The booking worker
registers them as email documents; files it has already seen are skipped there.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var metadata json.RawMessage
			if from != "" {
				raw, err := json.Marshal(map[string]string{"from": from})
				if err != nil {
					return err
				}
				metadata = raw
			}

			return a.withEnv(cmd.Context(), func(env *Env) error {
				if env.NewIntakePublisher == nil {
					return fmt.Errorf("document intake is not configured")
				}
				publisher, err := env.NewIntakePublisher(cmd.Context())
				if err != nil {
					return fmt.Errorf("connecting to document intake: %w", err)
				}
				defer publisher.Close()

				for _, path := range args {
					content, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					msg := document.IntakeMessage{
						Filename:      filepath.Base(path),
						Content:       content,
						EmailMetadata: metadata,
						ReceivedAt:    time.Now().UTC(),
					}
					if err := publisher.Publish(cmd.Context(), document.HashContent(content), msg); err != nil {
						return fmt.Errorf("publishing %s: %w", path, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", msg.Filename)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "sender address recorded as email metadata")
	return cmd
}
