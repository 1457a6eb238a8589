package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/lexrag/internal/cli"
	"github.com/hyperjump/lexrag/internal/models"
	"github.com/spf13/cobra"
)

type searchFlags struct {
	serverURL      string
	limit          int
	documentID     string
	keyword        bool
	semantic       bool
	fuzzy          bool
	includeOverlap bool
	minScore       float64
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	f := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored chunk records",
		Long: `Search runs keyword and semantic retrieval over the chunk records and
prints the fused ranking. With --server the query goes to a running
lexrag server, which avoids opening the indices a second time.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, f, strings.Join(args, " "))
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.serverURL, "server", "", "server URL, e.g. http://localhost:8080 (empty = open the indices directly)")
	flags.IntVar(&f.limit, "limit", 0, "number of results (default from config)")
	flags.StringVar(&f.documentID, "document", "", "restrict results to one document")
	flags.BoolVar(&f.keyword, "keyword", true, "enable keyword search")
	flags.BoolVar(&f.semantic, "semantic", true, "enable semantic search")
	flags.BoolVar(&f.fuzzy, "fuzzy", false, "tolerate typos in keyword search")
	flags.BoolVar(&f.includeOverlap, "include-overlap", false, "include overlap chunks")
	flags.Float64Var(&f.minScore, "min-score", 0, "drop results scoring below this")
	return cmd
}

type searchFunc func(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error)

func runSearch(cmd *cobra.Command, opts *rootOptions, f *searchFlags, text string) (err error) {
	if !f.keyword && !f.semantic {
		return fmt.Errorf("at least one of --keyword and --semantic must be enabled")
	}
	query := &models.SearchQuery{
		Query:           strings.TrimSpace(text),
		Limit:           f.limit,
		DocumentID:      f.documentID,
		KeywordEnabled:  f.keyword,
		SemanticEnabled: f.semantic,
		IncludeOverlap:  f.includeOverlap,
		FuzzyEnabled:    f.fuzzy,
		MinScore:        f.minScore,
	}

	var search searchFunc
	var format cli.OutputFormat
	if f.serverURL != "" {
		if format, err = cli.ParseFormat(opts.output); err != nil {
			return err
		}
		client := &http.Client{Timeout: 30 * time.Second}
		search = func(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
			return searchViaHTTP(ctx, client, f.serverURL, q)
		}
	} else {
		cfg, logger, fmtOut, err := opts.setup(true)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		format = fmtOut
		c, err := initializeComponents(cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close(false) }()
		search = c.Engine.Search
	}

	ctx := cmd.Context()
	response, err := search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	// Nothing matched exactly: retry once with typo tolerance.
	if !query.FuzzyEnabled && query.KeywordEnabled && response.Total == 0 {
		retry := *query
		retry.FuzzyEnabled = true
		if fuzzy, err := search(ctx, &retry); err == nil && fuzzy.Total > 0 {
			response = fuzzy
		}
	}
	return cli.WriteSearchResults(cmd.OutOrStdout(), response, format)
}

func searchViaHTTP(ctx context.Context, client *http.Client, serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(serverURL, "/")+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}
