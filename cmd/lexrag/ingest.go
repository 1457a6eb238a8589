package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/lexrag/internal/cli"
	"github.com/hyperjump/lexrag/internal/indexer"
	"github.com/spf13/cobra"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file or dir>...",
		Short: "Ingest document bundles",
		Long: `Ingest reads JSON document bundles and stores their chunk records.
Directories are walked for files with the configured watch extensions.
Files that have not changed since they were last ingested are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts, args)
		},
	}
}

func runIngest(cmd *cobra.Command, opts *rootOptions, paths []string) (err error) {
	cfg, logger, format, err := opts.setup(true)
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

	ctx := cmd.Context()
	var results []*indexer.Result
	var failed error
	for _, p := range paths {
		res, err := ingestPath(ctx, c.Indexer, p, cfg.Watch.Extensions)
		results = append(results, res...)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", p, err)
			failed = fmt.Errorf("some documents failed to ingest")
		}
	}
	if err := cli.WriteIngestResults(cmd.OutOrStdout(), results, format); err != nil {
		return err
	}
	return failed
}

func ingestPath(ctx context.Context, idx *indexer.Indexer, path string, exts []string) ([]*indexer.Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return idx.IngestDirectory(ctx, path, exts)
	}
	res, err := idx.IngestFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return []*indexer.Result{res}, nil
}
