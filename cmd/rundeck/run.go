package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rundeck/pkg/rundeck"
)

var runCmd = &cobra.Command{
	Use:   "run <job name or ID>",
	Short: "Run a job, optionally waiting for it to finish",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := requireProject(cmd)
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		argPairs, _ := cmd.Flags().GetStringSlice("arg")
		jobArgs, err := parseArgs(argPairs)
		if err != nil {
			return err
		}
		opts := rundeck.RunJobOptions{Args: jobArgs}

		jobID, err := client.ResolveJobID(ctx, project, args[0])
		if err != nil {
			return err
		}

		wait, _ := cmd.Flags().GetBool("wait")
		if !wait {
			exec, err := client.RunJob(ctx, jobID, opts)
			if err != nil {
				return err
			}
			fmt.Printf("execution %s %s\n", exec.ID, exec.Status)
			return nil
		}

		timeout, _ := cmd.Flags().GetDuration("timeout")
		interval, _ := cmd.Flags().GetDuration("interval")
		exec, timedOut, err := client.RunJobAndWait(ctx, jobID, opts, rundeck.PollConfig{
			Timeout:  timeout,
			Interval: interval,
		})
		if err != nil {
			return err
		}
		if timedOut {
			return fmt.Errorf("execution %s still %s after %s", exec.ID, exec.Status, timeout)
		}
		fmt.Printf("execution %s %s\n", exec.ID, exec.Status)
		if exec.Status != rundeck.StatusSucceeded {
			return fmt.Errorf("execution %s ended %s", exec.ID, exec.Status)
		}
		return nil
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <command...>",
	Short: "Run an ad-hoc command on a project's nodes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := requireProject(cmd)
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		id, err := client.RunAdhocCommand(cmd.Context(), project, strings.Join(args, " "), rundeck.AdhocOptions{})
		if err != nil {
			return err
		}
		fmt.Printf("execution %s\n", id)
		return nil
	},
}

// parseArgs splits key=value pairs from the command line.
func parseArgs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	args := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid job argument %q, expected key=value", pair)
		}
		args[k] = v
	}
	return args, nil
}

func init() {
	runCmd.Flags().StringSlice("arg", nil, "Job argument as key=value (repeatable)")
	runCmd.Flags().Bool("wait", false, "Poll until the execution finishes")
	runCmd.Flags().Duration("timeout", rundeck.DefaultPollTimeout, "Wait timeout")
	runCmd.Flags().Duration("interval", rundeck.DefaultPollInterval, "Poll interval")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(execCmd)
}
