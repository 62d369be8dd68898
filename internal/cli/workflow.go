package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflow.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowCreateCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
		newWorkflowActivateCmd(clientFn, outputFn),
		newWorkflowDeactivateCmd(clientFn, outputFn),
		newWorkflowActiveCmd(clientFn, outputFn),
		newTestModeCmd(clientFn, outputFn),
	)

	return cmd
}

func workflowRow(wf *WorkflowResponse) []string {
	return []string{
		wf.ID,
		wf.Name,
		strconv.FormatBool(wf.Active),
		strconv.Itoa(len(wf.Nodes)),
		wf.CreatedAt,
	}
}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflows, err := client.ListWorkflows()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "ACTIVE", "NODES", "CREATED"}
			rows := make([][]string, len(workflows))
			for i := range workflows {
				rows[i] = workflowRow(&workflows[i])
			}

			out.Print(headers, rows, workflows)
			return nil
		},
	}
}

func newWorkflowCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var name string
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow from a graph file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read graph file: %w", err)
			}

			var req CreateWorkflowRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parse graph file: %w", err)
			}
			if name != "" {
				req.Name = name
			}

			wf, err := client.CreateWorkflow(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow created: %s", wf.ID))
			out.Print(
				[]string{"ID", "NAME", "ACTIVE", "NODES", "CREATED"},
				[][]string{workflowRow(wf)},
				wf,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON file with nodes and connections (required)")
	cmd.Flags().StringVar(&name, "name", "", "Workflow name (overrides the file)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "NAME", "ACTIVE", "NODES", "CREATED"},
				[][]string{workflowRow(wf)},
				wf,
			)
			return nil
		},
	}
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteWorkflow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deleted: %s", args[0]))
			return nil
		},
	}
}

func newWorkflowActivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "activate ID",
		Short: "Activate a workflow (register its cron trigger)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.ActivateWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow activated: %s", wf.ID))
			return nil
		},
	}
}

func newWorkflowDeactivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate ID",
		Short: "Deactivate a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeactivateWorkflow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deactivated: %s", args[0]))
			return nil
		},
	}
}

func newWorkflowActiveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "List workflows registered in the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			jobs, err := client.ListActiveWorkflows()
			if err != nil {
				return err
			}

			headers := []string{"WORKFLOW", "CRON"}
			rows := make([][]string, len(jobs))
			for i, j := range jobs {
				rows[i] = []string{j.WorkflowID, j.CronExpr}
			}

			out.Print(headers, rows, jobs)
			return nil
		},
	}
}

// newTestModeCmd создаёт группу команд test mode.
func newTestModeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-mode",
		Short: "Manage test mode sessions",
	}

	var interval, duration string
	var maxExecutions int

	start := &cobra.Command{
		Use:   "start ID",
		Short: "Start a test mode session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			session, err := client.StartTestMode(args[0], TestModeRequest{
				Interval:      interval,
				Duration:      duration,
				MaxExecutions: maxExecutions,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Test mode started for %s", session.WorkflowID))
			out.Print(
				[]string{"WORKFLOW", "INTERVAL", "DURATION", "MAX", "TICKS"},
				[][]string{{
					session.WorkflowID,
					session.Interval,
					session.Duration,
					strconv.Itoa(session.MaxExecutions),
					strconv.Itoa(session.ExecCount),
				}},
				session,
			)
			return nil
		},
	}
	start.Flags().StringVar(&interval, "interval", "5min", "Tick interval (1min, 5min, 10min, 30min, 1hour, 1day)")
	start.Flags().StringVar(&duration, "duration", "30min", "Session lifetime (same enumeration)")
	start.Flags().IntVar(&maxExecutions, "max-executions", 0, "Stop after N ticks (0 = duration only)")

	stop := &cobra.Command{
		Use:   "stop ID",
		Short: "Stop a test mode session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.StopTestMode(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Test mode stopped for %s", args[0]))
			return nil
		},
	}

	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "List live test mode sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			list, err := client.ListTestSessions()
			if err != nil {
				return err
			}

			headers := []string{"WORKFLOW", "INTERVAL", "DURATION", "MAX", "TICKS", "STARTED"}
			rows := make([][]string, len(list))
			for i, s := range list {
				rows[i] = []string{
					s.WorkflowID,
					s.Interval,
					s.Duration,
					strconv.Itoa(s.MaxExecutions),
					strconv.Itoa(s.ExecCount),
					s.StartedAt,
				}
			}

			out.Print(headers, rows, list)
			return nil
		},
	}

	cmd.AddCommand(start, stop, sessions)
	return cmd
}
