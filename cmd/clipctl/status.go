package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/httpapi/handlers"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <job-id>...",
		Short: "Show job status",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			statuses := make([]handlers.JobStatus, 0, len(args))
			for _, id := range args {
				st, err := client.Status(cmd.Context(), id)
				if err != nil {
					return err
				}
				statuses = append(statuses, st)
			}
			if asJSON || !isTerminal(cmd.OutOrStdout()) {
				if len(statuses) == 1 {
					return writeJSON(cmd, statuses[0])
				}
				return writeJSON(cmd, statuses)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatusTable(statuses))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON even on a terminal")
	return cmd
}

func renderStatusTable(statuses []handlers.JobStatus) string {
	headers := []string{"Job", "Status", "Stage", "Progress", "Updated", "Result"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
	rows := make([][]string, 0, len(statuses))
	for _, st := range statuses {
		updated := ""
		if st.UpdatedAt != nil {
			updated = st.UpdatedAt.Local().Format(time.DateTime)
		}
		result := st.Remote
		if st.Error != "" {
			result = st.Error
		}
		rows = append(rows, []string{
			st.JobID,
			st.Status,
			st.Stage,
			strconv.Itoa(st.Progress) + "%",
			updated,
			result,
		})
	}
	return renderTable(headers, rows, aligns)
}
