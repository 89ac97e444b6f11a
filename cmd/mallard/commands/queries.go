package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (c *CLI) newOutdatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outdated",
		Short: "List targets the next run would rebuild",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			names, err := a.Outdated(cmd.Context(), c.planPath(cmd))
			if err != nil {
				return err
			}
			for _, name := range names {
				cmd.Println(name)
			}
			return nil
		},
	}
}

func (c *CLI) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tracked names: targets, imports, and file inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			names, err := a.List(c.planPath(cmd))
			if err != nil {
				return err
			}
			for _, name := range names {
				cmd.Println(name)
			}
			return nil
		},
	}
}

func (c *CLI) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <target>",
		Short: "Print a target's cached value as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			value, err := a.Get(args[0])
			if err != nil {
				return err
			}
			cmd.Println(string(value))
			return nil
		},
	}
}

func (c *CLI) newMetaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "meta <target>",
		Short: "Print the diagnostic record of a target's last build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			entry, err := a.Metadata(args[0])
			if err != nil {
				return err
			}

			cmd.Println("name:     " + entry.Name)
			cmd.Println("status:   " + string(entry.Status))
			cmd.Println(fmt.Sprintf("attempts: %d", entry.Attempts))
			cmd.Println("duration: " + entry.Duration.String())
			cmd.Println("built:    " + entry.BuiltAt.Format(time.RFC3339))
			if entry.Error != "" {
				cmd.Println("error:    " + entry.Error)
			}
			for _, w := range entry.Warnings {
				cmd.Println("warning:  " + w)
			}
			for _, m := range entry.Messages {
				cmd.Println("message:  " + m)
			}
			return nil
		},
	}
}

func (c *CLI) newMissingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "missing",
		Short: "List names commands reference that nothing defines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			names, err := a.MissingImports(c.planPath(cmd))
			if err != nil {
				return err
			}
			for _, name := range names {
				cmd.Println(name)
			}
			return nil
		},
	}
}

func (c *CLI) newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Print the cache log: one fingerprint line per tracked name",
		Long: "Print one line per tracked name in the form `<fingerprint>  <name>`,\n" +
			"name-sorted. Logs from two points in time line-diff into exactly the\n" +
			"set of changed nodes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			return a.CacheLog(c.planPath(cmd), cmd.OutOrStdout())
		},
	}
}

func (c *CLI) newCleanCmd() *cobra.Command {
	var destroy bool

	cmd := &cobra.Command{
		Use:   "clean [targets...]",
		Short: "Remove cache entries, or the whole cache with --destroy",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			return a.Clean(args, destroy)
		},
	}

	cmd.Flags().BoolVar(&destroy, "destroy", false, "Remove the backing storage itself")
	return cmd
}
