package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tdsync/internal/core/domain"
)

var taskHistoryLimit int

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Show scheduled task state",
	Long: `Lists the tasks 'tdsync serve' runs on a schedule, with their last and
next run and how many times in a row they have failed.`,
	Args: cobra.NoArgs,
	RunE: runTasks,
}

var tasksHistoryCmd = &cobra.Command{
	Use:   "history <task-id>",
	Short: "Show recent executions of a scheduled task",
	Long: `Shows the most recent executions of a task, newest first. Sync executions
carry the run id used in 'tdsync runs'.`,
	Args: cobra.ExactArgs(1),
	RunE: runTasksHistory,
}

func init() {
	tasksHistoryCmd.Flags().IntVarP(&taskHistoryLimit, "limit", "n", 10, "Number of executions to show")
	tasksCmd.AddCommand(tasksHistoryCmd)
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, _ []string) error {
	if schedulerStore == nil {
		return errors.New("scheduler store not configured")
	}

	tasks, err := schedulerStore.ListTasks(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(tasks) == 0 {
		cmd.Println("No scheduled tasks yet. Run 'tdsync serve' to start the scheduler.")
		return nil
	}

	rows := make([][]string, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		enabled := "no"
		if task.Enabled {
			enabled = "yes"
		}
		next := "-"
		if task.Enabled {
			next = formatTime(task.NextRun)
		}
		rows = append(rows, []string{
			task.ID,
			enabled,
			task.Interval.String(),
			formatTime(task.LastRun),
			next,
			strconv.Itoa(task.ConsecutiveFailures),
			task.LastError,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("TASK", "ENABLED", "EVERY", "LAST RUN", "NEXT RUN", "FAILURES", "LAST ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 5 && row >= 0 && row < len(tasks) {
				return failureStyle(tasks[row].ConsecutiveFailures).Padding(0, 1)
			}
			return cellStyle
		})
	cmd.Println(t.Render())
	return nil
}

func runTasksHistory(cmd *cobra.Command, args []string) error {
	if schedulerStore == nil {
		return errors.New("scheduler store not configured")
	}
	taskID := args[0]

	results, err := schedulerStore.GetTaskHistory(cmd.Context(), taskID, max(taskHistoryLimit, 1))
	if err != nil {
		return fmt.Errorf("failed to load history of %s: %w", taskID, err)
	}
	if len(results) == 0 {
		cmd.Printf("No executions recorded for %s.\n", taskID)
		return nil
	}

	cmd.Println(renderTaskHistory(results))
	return nil
}

func renderTaskHistory(results []domain.TaskResult) string {
	rows := make([][]string, 0, len(results))
	for i := range results {
		r := &results[i]
		outcome := "ok"
		if !r.Success {
			outcome = "failed"
		}
		run := "-"
		if r.RunID != "" {
			run = shortID(r.RunID)
		}
		rows = append(rows, []string{
			formatTime(r.StartedAt),
			r.Duration().Round(time.Millisecond).String(),
			outcome,
			run,
			strconv.Itoa(r.RecordsProcessed),
			r.Error,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("STARTED", "TOOK", "RESULT", "RUN", "RECORDS", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(results) {
				if results[row].Success {
					return successStyle.Padding(0, 1)
				}
				return errorStyle.Padding(0, 1)
			}
			return cellStyle
		})
	return t.Render()
}
