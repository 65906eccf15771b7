package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rundeck/pkg/rundeck"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the jobs of a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := requireProject(cmd)
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		group, _ := cmd.Flags().GetString("group")
		filter, _ := cmd.Flags().GetString("filter")
		jobs, err := client.ListJobs(cmd.Context(), project, rundeck.ListJobsOptions{
			GroupPath: group,
			JobFilter: filter,
		})
		if err != nil {
			return err
		}

		for _, job := range jobs {
			name := job["name"]
			if job["group"] != "" {
				name = job["group"] + "/" + name
			}
			fmt.Printf("%s\t%s\n", job["id"], name)
		}
		return nil
	},
}

var jobsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a project's job definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := requireProject(cmd)
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		doc, err := client.ExportJobs(cmd.Context(), project, rundeck.JobDefFormat(format), rundeck.ExportJobsOptions{})
		if err != nil {
			return err
		}
		fmt.Print(doc)
		return nil
	},
}

var jobsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import job definitions from a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		format, _ := cmd.Flags().GetString("format")
		dupe, _ := cmd.Flags().GetString("dupe-option")
		project, _ := cmd.Flags().GetString("project")
		status, err := client.ImportJobs(cmd.Context(), f, rundeck.ImportJobsOptions{
			Format:     rundeck.JobDefFormat(format),
			DupeOption: rundeck.DupeOption(dupe),
			Project:    project,
		})
		if err != nil {
			return err
		}
		for name, outcome := range status {
			fmt.Printf("%s\t%s\n", name, outcome)
		}
		return nil
	},
}

func init() {
	jobsCmd.Flags().String("group", "", "Group path filter")
	jobsCmd.Flags().String("filter", "", "Job name substring filter")
	jobsExportCmd.Flags().String("format", "xml", "Export format (xml or yaml)")
	jobsImportCmd.Flags().String("format", "xml", "Definition format (xml or yaml)")
	jobsImportCmd.Flags().String("dupe-option", "", "Behavior on duplicate names (skip, create or update)")

	jobsCmd.AddCommand(jobsExportCmd)
	jobsCmd.AddCommand(jobsImportCmd)
	rootCmd.AddCommand(jobsCmd)
}
