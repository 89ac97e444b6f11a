// Package commands implements the CLI commands for the mallard workflow engine.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/mallard/internal/adapters/planfile"
	"go.trai.ch/mallard/internal/adapters/store"
	"go.trai.ch/mallard/internal/app"
	"go.trai.ch/mallard/internal/build"
)

// CLI represents the command line interface for mallard.
type CLI struct {
	components *app.Components
	rootCmd    *cobra.Command
}

// New creates a new CLI instance with the given components.
func New(components *app.Components) *CLI {
	rootCmd := &cobra.Command{
		Use:           "mallard",
		Short:         "A reproducible make-like engine for data workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.PersistentFlags().StringP("plan", "p", planfile.DefaultPath, "Path to the plan file")
	rootCmd.PersistentFlags().String("cache", store.DefaultPath, "Path to the cache (file or directory, depending on backend)")
	rootCmd.PersistentFlags().String("backend", store.BackendFile, "Cache backend: sharded, file, or memory")

	c := &CLI{
		components: components,
		rootCmd:    rootCmd,
	}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newOutdatedCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newGetCmd())
	rootCmd.AddCommand(c.newMetaCmd())
	rootCmd.AddCommand(c.newMissingCmd())
	rootCmd.AddCommand(c.newLogCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// application returns the App bound to the store the --cache and --backend
// flags select.
func (c *CLI) application(cmd *cobra.Command) (*app.App, error) {
	backend, _ := cmd.Flags().GetString("backend")
	path, _ := cmd.Flags().GetString("cache")

	if backend == store.BackendFile && path == store.DefaultPath {
		return c.components.App, nil
	}

	st, err := store.Open(backend, path)
	if err != nil {
		return nil, err
	}
	return c.components.App.WithStore(st), nil
}

func (c *CLI) planPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("plan")
	return path
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects command output. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
