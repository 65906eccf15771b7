package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rundeck/pkg/config"
	"rundeck/pkg/connection"
	"rundeck/pkg/rundeck"
)

var rootCmd = &cobra.Command{
	Use:   "rundeck",
	Short: "rundeck talks to a Rundeck job server",
	Long: `rundeck runs jobs and ad-hoc commands against a Rundeck server and
inspects projects, executions and history.

Connection settings come from a YAML config file and RUNDECK_* environment
variables (RUNDECK_SERVER, RUNDECK_API_TOKEN, ...).`,
	SilenceUsage: true,
}

// Execute runs the root command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringP("project", "p", "", "Project name")
}

// newClient builds a client from the resolved configuration.
func newClient(cmd *cobra.Command) (*rundeck.Client, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	conn, err := connection.New(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	return rundeck.New(conn), nil
}

func requireProject(cmd *cobra.Command) (string, error) {
	project, _ := cmd.Flags().GetString("project")
	if project == "" {
		return "", fmt.Errorf("a project is required, pass --project")
	}
	return project, nil
}
