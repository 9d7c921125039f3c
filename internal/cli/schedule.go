package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewSeedCmd создаёт команду ручного seed.
func NewSeedCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var dueAt string
	var in time.Duration

	cmd := &cobra.Command{
		Use:   "seed SUBJECT_ID",
		Short: "Seed a due item for a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			due := dueAt
			if due == "" && in > 0 {
				due = time.Now().Add(in).Format(time.RFC3339)
			}

			item, err := client.Seed(args[0], due)
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "SUBJECT_ID", "DUE_AT"},
				[][]string{{item.ID, item.SubjectID, item.DueAt}},
				item,
			)
			out.Success(fmt.Sprintf("Seeded due item for %s", item.SubjectID))
			return nil
		},
	}

	cmd.Flags().StringVar(&dueAt, "due-at", "", "Due time (RFC3339); default: now")
	cmd.Flags().DurationVar(&in, "in", 0, "Due after this duration from now (e.g. 24h); ignored if --due-at is set")

	return cmd
}

// NewWindowCmd создаёт команду window-запроса.
func NewWindowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var now string
	var horizon time.Duration

	cmd := &cobra.Command{
		Use:   "window",
		Short: "List items due in a time window",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var horizonSec int
			if horizon > 0 {
				horizonSec = int(horizon.Seconds())
			}

			items, err := client.Window(now, horizonSec)
			if err != nil {
				return err
			}

			headers := []string{"SUBJECT_ID", "DUE_AT"}
			rows := make([][]string, len(items))
			for i, item := range items {
				rows[i] = []string{item.SubjectID, item.DueAt}
			}

			out.Print(headers, rows, items)
			return nil
		},
	}

	cmd.Flags().StringVar(&now, "now", "", "Window start (RFC3339); default: current time")
	cmd.Flags().DurationVar(&horizon, "horizon", 0, "Window size (e.g. 1h, 24h); default: 24h")

	return cmd
}

// NewStatusCmd создаёт команду статуса сервиса.
func NewStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show scheduler status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			status, err := client.Status()
			if err != nil {
				return err
			}

			out.Print(
				[]string{"SERVICE", "VERSION", "STATUS", "STORAGE", "MESSAGING", "UPTIME"},
				[][]string{{
					status.Service,
					status.Version,
					status.Status,
					status.Storage,
					status.Messaging,
					status.Uptime,
				}},
				status,
			)

			if status.Storage == "memory" {
				out.Error("store is running on the in-memory fallback: contents are volatile")
			}
			return nil
		},
	}
}
