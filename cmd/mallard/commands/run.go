package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/mallard/internal/app"
	"go.trai.ch/mallard/internal/engine/scheduler"
)

func (c *CLI) newRunCmd() *cobra.Command {
	var (
		jobs       int
		mode       string
		cacheWrite string
		memory     string
		timeout    time.Duration
		elapsed    time.Duration
		cpu        time.Duration
		retries    int
		keepGoing  bool
		logPath    string
	)

	cmd := &cobra.Command{
		Use:   "run [targets...]",
		Short: "Build outdated targets and their dependencies",
		Long: "Build the named targets, or the whole plan when no targets are given.\n" +
			"Up-to-date targets are left alone; everything else is rebuilt in\n" +
			"dependency order.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd)
			if err != nil {
				return err
			}

			report, runErr := a.Run(cmd.Context(), app.RunOptions{
				PlanPath:   c.planPath(cmd),
				Targets:    args,
				Jobs:       jobs,
				Mode:       scheduler.Mode(mode),
				CacheWrite: scheduler.CacheWriteMode(cacheWrite),
				Memory:     scheduler.MemoryStrategy(memory),
				Timeout:    timeout,
				Elapsed:    elapsed,
				CPU:        cpu,
				Retries:    retries,
				KeepGoing:  keepGoing,
				LogPath:    logPath,
			})
			if report != nil {
				printReport(cmd, report)
			}
			return runErr
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "Maximum number of targets built in parallel")
	cmd.Flags().StringVar(&mode, "runner", string(scheduler.ModeInProcess), "Runner mode: in-process, persistent, transient, or hasty")
	cmd.Flags().StringVar(&cacheWrite, "cache-write", string(scheduler.CacheWriteCoordinator), "Cache write discipline: coordinator or worker")
	cmd.Flags().StringVar(&memory, "memory", string(scheduler.MemoryKeepAll), "Value retention strategy: keep-all, minimal, or lookahead")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Default per-attempt time limit (0 = none)")
	cmd.Flags().DurationVar(&elapsed, "elapsed", 0, "Default per-attempt elapsed-time budget (0 = none)")
	cmd.Flags().DurationVar(&cpu, "cpu", 0, "Default per-attempt cpu-time budget (0 = none)")
	cmd.Flags().IntVar(&retries, "retries", 0, "Default number of retries after a failed attempt")
	cmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "Build dependents of failed targets instead of skipping them")
	cmd.Flags().StringVar(&logPath, "log", "", "Write the cache log to this file after the run")

	return cmd
}

func printReport(cmd *cobra.Command, report *scheduler.Report) {
	for _, outcome := range report.Outcomes {
		line := fmt.Sprintf("%-12s %s", outcome.State, outcome.Name)
		if outcome.Error != "" {
			line += ": " + outcome.Error
		}
		cmd.Println(line)
	}
}
