package cli

import (
	"github.com/shinyvision/poxref/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the language server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(o)
		},
	}
}

func runServe(o *rootOptions) error {
	opts, err := o.engineOptions()
	if err != nil {
		return err
	}
	server.NewServer(opts).Run()
	return nil
}
