// Package cli formats command output as styled text or JSON.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hyperjump/lexrag/internal/chunker"
	"github.com/hyperjump/lexrag/internal/docindex"
	"github.com/hyperjump/lexrag/internal/indexer"
	"github.com/hyperjump/lexrag/internal/models"
	"github.com/hyperjump/lexrag/internal/search"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for other programs.
	OutputJSON OutputFormat = "json"
)

const snippetRunes = 240

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func rule(w io.Writer) {
	fmt.Fprintln(w, dimStyle.Render(strings.Repeat("─", 57)))
}

// WriteSearchResults writes ranked chunk records.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, r := range response.Results {
		rule(w)
		fmt.Fprintf(w, "%s %s %s\n",
			titleStyle.Render(fmt.Sprintf("#%d", r.Rank)),
			scoreStyle.Render(fmt.Sprintf("%.4f", r.Score)),
			dimStyle.Render(fmt.Sprintf("(keyword %.4f, semantic %.4f)", r.KeywordScore, r.SemanticScore)))
		if r.Record == nil {
			continue
		}
		rec := r.Record
		if rec.Title != "" {
			fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Document:"), rec.Title)
		}
		if rec.SectionPath != "" {
			fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Section:"), rec.SectionPath)
		}
		if rec.DocumentURL != "" {
			fmt.Fprintf(w, "%s %s\n", dimStyle.Render("URL:"), rec.DocumentURL)
		}
		fmt.Fprintf(w, "\n%s\n\n", search.Snippet(rec.Content, snippetRunes))
	}
	return nil
}

// WriteChunks writes the output of the chunker.
func WriteChunks(w io.Writer, chunks []chunker.Chunk, format OutputFormat) error {
	if format == OutputJSON {
		if chunks == nil {
			chunks = []chunker.Chunk{}
		}
		return writeJSON(w, chunks)
	}
	for _, c := range chunks {
		label := fmt.Sprintf("Chunk %d/%d", c.ChunkIndex+1, c.TotalChunks)
		if c.IsOverlap {
			label += " " + warnStyle.Render("overlap")
		}
		fmt.Fprintf(w, "%s %s\n", titleStyle.Render(label),
			dimStyle.Render(fmt.Sprintf("%d tokens, %d chars", c.TokenCount, c.CharCount)))
		if c.SectionPath != "" {
			fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Section:"), c.SectionPath)
		}
		fmt.Fprintf(w, "%s\n\n", c.Content)
	}
	return nil
}

// WriteDocuments writes a document listing.
func WriteDocuments(w io.Writer, docs []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []*models.Document{}
		}
		return writeJSON(w, docs)
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%s  %s %s\n", titleStyle.Render(d.ID), d.Title,
			dimStyle.Render(fmt.Sprintf("(%d fragments, %d chunks)", d.Fragments, d.Chunks)))
	}
	return nil
}

// WriteIngestResults writes one line per ingested document.
func WriteIngestResults(w io.Writer, results []*indexer.Result, format OutputFormat) error {
	if format == OutputJSON {
		if results == nil {
			results = []*indexer.Result{}
		}
		return writeJSON(w, results)
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		status := scoreStyle.Render("indexed")
		if r.Skipped {
			status = dimStyle.Render("unchanged")
		}
		line := fmt.Sprintf("%s %s %s", status, r.DocumentID, r.Title)
		if !r.Skipped {
			line += dimStyle.Render(fmt.Sprintf(" (%d fragments, %d rejected, %d records)",
				r.Fragments, r.Rejected, r.Records))
		}
		if r.Errors > 0 {
			line += " " + errorStyle.Render(fmt.Sprintf("%d errors", r.Errors))
		}
		if r.Warnings > 0 {
			line += " " + warnStyle.Render(fmt.Sprintf("%d warnings", r.Warnings))
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// TreeNode is one fragment of an inspected document.
type TreeNode struct {
	Depth       int    `json:"depth"`
	Level       int    `json:"level"`
	ContentType string `json:"content_type"`
	Caption     string `json:"caption,omitempty"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Breadcrumb  string `json:"breadcrumb"`
}

// Inspection is the JSON form of `lexrag inspect`.
type Inspection struct {
	Document  *models.Document `json:"document"`
	Fragments int              `json:"fragments"`
	Rejected  int              `json:"rejected"`
	Stats     docindex.Stats   `json:"stats"`
	Errors    []string         `json:"errors"`
	Warnings  []string         `json:"warnings"`
	Tree      []TreeNode       `json:"tree"`
}

// NewInspection flattens an analysis for output.
func NewInspection(a *indexer.Analysis) *Inspection {
	in := &Inspection{
		Document:  a.Document,
		Fragments: a.Index.Len(),
		Rejected:  a.Rejected,
		Stats:     a.Index.Stats(),
		Errors:    issueMessages(a.Report.Errors),
		Warnings:  issueMessages(a.Report.Warnings),
		Tree:      []TreeNode{},
	}
	a.Index.Walk(func(h docindex.Handle, depth int) bool {
		f, _ := a.Index.Get(h)
		in.Tree = append(in.Tree, TreeNode{
			Depth:       depth,
			Level:       f.Level,
			ContentType: f.ContentType,
			Caption:     docindex.CleanCaption(f.Caption),
			Start:       f.Start,
			End:         f.End,
			Breadcrumb:  a.Index.BreadcrumbOf(h),
		})
		return true
	})
	return in
}

func issueMessages(issues []docindex.Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Message
	}
	return out
}

// WriteInspection writes the fragment tree, its statistics and the
// validation report of an analysed bundle.
func WriteInspection(w io.Writer, a *indexer.Analysis, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, NewInspection(a))
	}
	doc := a.Document
	header := fmt.Sprintf("%s %s\n%s %s\n%s %s",
		dimStyle.Render("Title:"), titleStyle.Render(doc.Title),
		dimStyle.Render("Number:"), doc.Number,
		dimStyle.Render("Hash:"), doc.Hash)
	fmt.Fprintln(w, boxStyle.Render(header))
	fmt.Fprintln(w)
	if err := a.Index.Print(w); err != nil {
		return err
	}

	st := a.Index.Stats()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %d fragments, %d rejected, %d with children, max %d children\n",
		dimStyle.Render("Stats:"), st.TotalNodes, a.Rejected, st.NodesWithChildren, st.MaxChildren)
	for level, n := range st.NodesPerLevel {
		if n > 0 {
			fmt.Fprintf(w, "  %s %d\n", dimStyle.Render(fmt.Sprintf("level %d:", level)), n)
		}
	}
	for _, is := range a.Report.Errors {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("error:"), is.Message)
	}
	for _, is := range a.Report.Warnings {
		fmt.Fprintf(w, "%s %s\n", warnStyle.Render("warning:"), is.Message)
	}
	if a.Report.OK() && len(a.Report.Warnings) == 0 {
		fmt.Fprintln(w, scoreStyle.Render("index is consistent"))
	}
	return nil
}
