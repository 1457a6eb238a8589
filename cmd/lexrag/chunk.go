package main

import (
	"io"
	"os"

	"github.com/hyperjump/lexrag/internal/cli"
	"github.com/spf13/cobra"
)

func newChunkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chunk [file]",
		Short: "Chunk raw text from a file or stdin",
		Long: `Chunk splits plain text with the configured chunking policy and prints
the chunks. Blank lines separate the paragraphs of the structural policy.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, format, err := opts.setup(true)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			text, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			idx, err := newStatelessIndexer(cfg, logger)
			if err != nil {
				return err
			}
			chunks, err := idx.ChunkText(string(text))
			if err != nil {
				return err
			}
			return cli.WriteChunks(cmd.OutOrStdout(), chunks, format)
		},
	}
}
