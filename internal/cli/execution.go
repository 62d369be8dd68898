package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для запусков workflow.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Run workflows and inspect executions",
	}

	cmd.AddCommand(
		newExecutionRunCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionListCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecutionRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var contextJSON string

	cmd := &cobra.Command{
		Use:   "run WORKFLOW_ID",
		Short: "Execute a workflow immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var req ExecuteRequest
			if contextJSON != "" {
				if err := json.Unmarshal([]byte(contextJSON), &req.Context); err != nil {
					return fmt.Errorf("parse context: %w", err)
				}
			}

			result, err := client.ExecuteWorkflow(args[0], req)
			if err != nil {
				return err
			}

			if result.Success {
				out.Success(fmt.Sprintf("Execution %s succeeded in %dms", result.ExecutionID, result.DurationMs))
			} else {
				out.Error(fmt.Sprintf("Execution %s failed: %s", result.ExecutionID, result.Error))
			}

			out.Print(logHeaders(), logRows(result.Log), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&contextJSON, "context", "", "Initial context as inline JSON")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a stored execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution %s: %s (%dms)", exec.ID, exec.Status, exec.DurationMs))
			out.Print(logHeaders(), logRows(exec.Log), exec)
			return nil
		},
	}
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list WORKFLOW_ID",
		Short: "List executions of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions(args[0], limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "STARTED", "DURATION_MS", "NODES", "ERROR"}
			rows := make([][]string, len(executions))
			for i, e := range executions {
				rows[i] = []string{
					e.ID,
					e.Status,
					e.StartedAt,
					strconv.FormatInt(e.DurationMs, 10),
					strconv.Itoa(len(e.Log)),
					e.Error,
				}
			}

			out.Print(headers, rows, executions)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of executions")

	return cmd
}

func logHeaders() []string {
	return []string{"NODE", "NAME", "TYPE", "STATUS", "ERROR"}
}

func logRows(log []LogEntryResponse) [][]string {
	rows := make([][]string, len(log))
	for i, entry := range log {
		rows[i] = []string{
			entry.NodeID,
			entry.NodeName,
			entry.NodeType,
			entry.Status,
			entry.Error,
		}
	}
	return rows
}
