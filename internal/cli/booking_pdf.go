package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newBookingPDFCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "booking-pdf BOOKING_ID",
		Short: "Render the summary PDF of one booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = "booking-" + args[0] + ".pdf"
			}
			return a.withEnv(cmd.Context(), func(env *Env) error {
				var buf bytes.Buffer
				if err := env.Reports.WriteBookingPDF(cmd.Context(), &buf, args[0]); err != nil {
					return err
				}
				if output == "-" {
					_, err := cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default booking-<id>.pdf)`)
	return cmd
}
