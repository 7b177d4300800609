package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/pindex/internal/types"
	"github.com/hyperengineering/pindex/internal/validation"
)

var (
	projectDescription string
	projectDeleteForce bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  "Create, list, and delete projects without running the server.",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project with the default checklist",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectCreate,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects, newest first",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project with its checklist and survey data",
	Long:  "Permanently delete a project, its checklist items and their details. Requires --force or interactive confirmation.",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDelete,
}

func init() {
	projectCreateCmd.Flags().StringVar(&projectDescription, "description", "",
		"Project description")
	projectDeleteCmd.Flags().BoolVar(&projectDeleteForce, "force", false,
		"Skip confirmation prompt")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectDeleteCmd)
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	req := types.NewProject{Name: strings.TrimSpace(args[0]), Description: projectDescription}
	if errs := validation.ValidateNewProject(req); len(errs) > 0 {
		return fmt.Errorf("invalid project: %s: %s", errs[0].Field, errs[0].Message)
	}

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.CreateProject(context.Background(), req)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), p)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created project %q (id: %s)\n", p.Name, p.ID)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	projects, err := s.ListProjects(context.Background())
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	if jsonOutput {
		if projects == nil {
			projects = []types.ProjectSummary{}
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"projects": projects,
			"total":    len(projects),
		})
	}

	if len(projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tNAME\tPROGRESS\tCREATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%d/%d (%d%%)\t%s\n",
			p.ID,
			p.Name,
			p.Completed, p.Total, p.CompletionRate,
			humanize.Time(p.CreatedAt),
		)
	}
	return w.Flush()
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	projectID := args[0]
	ctx := context.Background()

	s, _, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("project %s: %w", projectID, err)
	}

	// Interactive confirmation unless --force
	if !projectDeleteForce {
		errOut := cmd.ErrOrStderr()
		fmt.Fprintf(errOut, "WARNING: This will permanently delete project %q and all its survey data.\n", p.Name)
		fmt.Fprint(errOut, "Type the project ID to confirm: ")

		reader := bufio.NewReader(cmd.InOrStdin())
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}

		if strings.TrimSpace(input) != projectID {
			fmt.Fprintln(errOut, "Aborted. Project ID did not match.")
			return nil
		}
	}

	if err := s.DeleteProject(ctx, projectID); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"id":      projectID,
			"deleted": true,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %q\n", p.Name)
	return nil
}
