package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fentz26/planforge/internal/models"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects"},
	Short:   "Inspect saved projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your projects",
	RunE:  runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project-id]",
	Short: "Show a project and its tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectActivityCmd = &cobra.Command{
	Use:   "activity [project-id]",
	Short: "Show recent task activity",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectActivity,
}

var projectExportCmd = &cobra.Command{
	Use:   "export [project-id]",
	Short: "Print a project as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectExport,
}

var activityLimit int

func init() {
	projectCmd.AddCommand(projectListCmd, projectShowCmd, projectActivityCmd, projectExportCmd)
	projectActivityCmd.Flags().IntVar(&activityLimit, "limit", 20, "Maximum number of entries")
}

func runProjectList(cmd *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}

	projects, err := newClient().ListProjects(context.Background(), user.ID)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTASKS\tUPDATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.ID, truncate(p.Title, 40), p.TaskCount, p.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	p, err := newClient().GetProject(context.Background(), args[0], user.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Project: %s\n", p.ID)
	fmt.Printf("Title:   %s\n", p.Title)
	fmt.Printf("Goal:    %s\n", p.Goal)
	if p.TargetDate != "" {
		fmt.Printf("Target:  %s\n", p.TargetDate)
	}
	fmt.Printf("Owner:   %s\n", p.OwnerID)
	if p.LastModifiedBy != "" {
		fmt.Printf("Edited:  %s by %s\n", p.UpdatedAt.Local().Format("2006-01-02 15:04"), p.LastModifiedBy)
	}
	fmt.Println()

	if len(p.Tasks) == 0 {
		fmt.Println("No tasks")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTATUS\tTITLE\tOWNER\tSTEPS\tDUE")
	for i, t := range p.Tasks {
		d := t.ExtendedDetails
		done := 0
		for _, s := range d.SubSteps {
			if s.Status == models.SubStepCompleted {
				done++
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\t%s\n", i+1, t.Status, truncate(t.Title, 40), d.Responsible, done, len(d.SubSteps), d.DueDate)
	}
	return w.Flush()
}

func runProjectActivity(cmd *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	records, err := newClient().ListActivity(context.Background(), args[0], user.ID, activityLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No activity")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tUSER\tACTION\tTASK")
	for _, r := range records {
		title, _ := r.Payload["task_title"].(string)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.UserID, r.Kind, title)
	}
	return w.Flush()
}

func runProjectExport(cmd *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	p, err := newClient().GetProject(context.Background(), args[0], user.ID)
	if err != nil {
		return err
	}
	return printJSON(p)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
