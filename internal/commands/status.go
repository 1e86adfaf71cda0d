package commands

import (
	"github.com/spf13/cobra"

	"github.com/sigquery/sigquery/query"
)

var statusPath string

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <action>",
		Short: "Execute a status action and print its value",
		Long: `Execute a GET status action and print the single status value the
endpoint returns, e.g. "available".

Examples:
  sigquery status GetServiceStatus
  sigquery status GetServiceStatus --path /health`,
		Args: cobra.ExactArgs(1),
		RunE: runStatus,
	}

	cmd.Flags().StringVar(&statusPath, "path", "/", "Request path")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := newClient(ctx)
	if err != nil {
		return err
	}

	status, err := c.GetStatus(ctx, args[0], query.Tree{}, statusPath)
	if err != nil {
		return err
	}

	cmd.Println(status)
	return nil
}
