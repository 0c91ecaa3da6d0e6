package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mtloop/datarecording"
	"github.com/sarchlab/mtloop/tracing"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the executions stored in a recording.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, _ := cmd.Flags().GetString("db")
		limit, _ := cmd.Flags().GetInt("limit")
		task, _ := cmd.Flags().GetString("task")

		if db == "" {
			return fmt.Errorf("--db is required")
		}

		_, err := os.Stat(db)
		if err != nil {
			return err
		}

		reader := datarecording.NewReader(db)
		defer reader.Close()

		return inspect(cmd.Context(), cmd.OutOrStdout(), reader, limit, task)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().String("db", "", "recording to read")
	inspectCmd.Flags().Int("limit", 20, "maximum number of executions to print")
	inspectCmd.Flags().String("task", "", "only print executions of this task")
}

func inspect(
	ctx context.Context,
	out io.Writer,
	reader datarecording.DataReader,
	limit int,
	task string,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	infos, _, err := datarecording.QueryAs[datarecording.ExecInfo](
		ctx, reader, "exec_info", datarecording.QueryParams{})
	if err != nil {
		return err
	}

	for _, info := range infos {
		fmt.Fprintf(out, "%s: %s\n", info.Property, info.Value)
	}

	execs, total, err := tracing.ReadExecutions(ctx, reader,
		tracing.ExecutionQuery{Task: task, Limit: limit})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d executions, showing %d\n\n", total, len(execs))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Chain\tSlot\tTask\tStart\tStop\tOutcome\t")

	for _, entry := range execs {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\t%s\t\n",
			entry.Chain, entry.Slot, entry.Task,
			entry.Start, entry.Stop, outcome(entry))
	}

	return w.Flush()
}

func outcome(e tracing.ExecutionEntry) string {
	switch {
	case e.Panicked:
		return "panicked"
	case e.Declined:
		return "declined"
	default:
		return "completed"
	}
}
