package main

import (
	"github.com/hyperjump/lexrag/internal/cli"
	"github.com/hyperjump/lexrag/internal/indexer"
	"github.com/spf13/cobra"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <bundle>",
		Short: "Print the fragment tree, statistics and validation report of a bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, format, err := opts.setup(true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			b, err := indexer.LoadBundle(args[0])
			if err != nil {
				return err
			}
			a, err := indexer.Analyze(b, logger)
			if err != nil {
				return err
			}
			return cli.WriteInspection(cmd.OutOrStdout(), a, format)
		},
	}
}
