package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/httpapi/handlers"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var req handlers.CreateJobRequest
	var start, end float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a clip job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.AbsoluteStart = &start
			req.AbsoluteEnd = &end
			resp, err := ctx.client().Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", resp.JobID, resp.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.JobID, "id", "", "Job id")
	cmd.Flags().StringVar(&req.SourceVideoRef, "video", "", "Source video reference")
	cmd.Flags().StringVar(&req.SourceAudioRef, "audio", "", "Source audio reference")
	cmd.Flags().Float64Var(&start, "start", 0, "Clip start in seconds")
	cmd.Flags().Float64Var(&end, "end", 0, "Clip end in seconds")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("video")
	_ = cmd.MarkFlagRequired("audio")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}
