package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/task-dashboard/internal/insight"
	"github.com/nhle/task-dashboard/internal/report"
	"github.com/nhle/task-dashboard/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report <project-id>",
	Short: "Print a project's insights to the terminal",
	Long: `Compute the insights for one project and render them as a styled
terminal report.

Examples:
  taskdash report 6f1c2a4e-0d7b-4f0e-9b59-3c1f0c6a9e21`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	project, err := s.GetProjectByID(ctx, args[0])
	if err != nil {
		return err
	}
	tasks, err := s.GetTasks(ctx, store.TaskFilter{ProjectID: &project.ID})
	if err != nil {
		return err
	}
	recent, err := s.CountRecentActivities(ctx, project.ID, cfg.Insights.RecentActivityLimit)
	if err != nil {
		return err
	}

	in, err := insight.ComputeProject(insight.Snapshot{
		Tasks:               tasks,
		RecentActivityCount: recent,
		ProjectCreatedAt:    project.CreatedAt,
		ProjectEndDate:      project.EndDate,
		Now:                 time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("computing insights for %s: %w", project.ID, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.RenderProject(*project, in))
	return nil
}
