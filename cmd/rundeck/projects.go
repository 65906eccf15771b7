package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rundeck/pkg/rundeck"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		projects, err := client.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range projects {
			fmt.Printf("%s\t%s\n", p["name"], p["description"])
		}
		return nil
	},
}

var executionsCmd = &cobra.Command{
	Use:   "executions",
	Short: "List recent executions of a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := requireProject(cmd)
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		running, _ := cmd.Flags().GetBool("running")
		var executions []map[string]string
		if running {
			executions, err = client.ListRunningExecutions(cmd.Context(), project)
		} else {
			max, _ := cmd.Flags().GetInt("max")
			executions, err = client.ListExecutions(cmd.Context(), project, rundeck.ListExecutionsOptions{Max: max})
		}
		if err != nil {
			return err
		}
		for _, e := range executions {
			fmt.Printf("%s\t%s\t%s\n", e["id"], e["status"], e["user"])
		}
		return nil
	},
}

func init() {
	executionsCmd.Flags().Bool("running", false, "Only currently running executions")
	executionsCmd.Flags().Int("max", 20, "Maximum number of results")

	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(executionsCmd)
}
