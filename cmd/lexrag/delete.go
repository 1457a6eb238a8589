package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its chunk records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, logger, _, err := opts.setup(true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			c, err := initializeComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := c.Close(true); err == nil {
					err = cerr
				}
			}()
			if err := c.Indexer.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deletion failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Document deleted: %s\n", args[0])
			return nil
		},
	}
}
