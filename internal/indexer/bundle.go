package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/lexrag/internal/contents"
	"github.com/hyperjump/lexrag/internal/docindex"
	"github.com/hyperjump/lexrag/internal/legalhtml"
	"github.com/hyperjump/lexrag/internal/models"
	"go.uber.org/zap"
)

// ErrEmptyDocument is returned for a bundle with neither HTML nor fragments.
var ErrEmptyDocument = errors.New("document has no content")

// Bundle is one act as delivered for ingestion: its attributes, table of
// contents and HTML body. Fragments, when present, replace the table of
// contents.
type Bundle struct {
	Document  BundleDocument   `json:"document"`
	Contents  []contents.Entry `json:"contents,omitempty"`
	HTML      string           `json:"html"`
	Fragments []BundleFragment `json:"fragments,omitempty"`

	// SourcePath is set when the bundle was read from a file.
	SourcePath string `json:"-"`
}

// BundleDocument carries the act attributes known before parsing.
type BundleDocument struct {
	Hash           string `json:"hash"`
	Title          string `json:"title,omitempty"`
	Number         string `json:"number,omitempty"`
	SignDate       string `json:"sign_date,omitempty"`
	PublicationURL string `json:"publication_url,omitempty"`
}

// BundleFragment is a pre-built fragment. Start and End are paragraph numbers.
type BundleFragment struct {
	ContentType string `json:"content_type"`
	Caption     string `json:"caption,omitempty"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Level       int    `json:"level"`
	HTML        string `json:"html"`
}

// DecodeBundle reads a JSON bundle.
func DecodeBundle(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return &b, nil
}

// LoadBundle reads the bundle file at path and records its absolute path.
func LoadBundle(path string) (*Bundle, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	f, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := DecodeBundle(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	b.SourcePath = absPath
	return b, nil
}

// DocumentID is the bundle hash, or the hex of the first 16 bytes of the
// SHA-256 of its HTML when the hash is missing.
func (b *Bundle) DocumentID() string {
	if h := strings.TrimSpace(b.Document.Hash); h != "" {
		return h
	}
	body := b.HTML
	if body == "" {
		for _, f := range b.Fragments {
			body += f.HTML
		}
	}
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:16])
}

// Analysis is a parsed bundle: its document, paragraphs and fragment index.
type Analysis struct {
	Document   *models.Document
	Paragraphs []legalhtml.Paragraph
	Index      *docindex.Index[contents.Section]
	Rejected   int
	Report     docindex.Report
}

// Analyze parses the bundle and builds its fragment index. Missing title,
// number and date are taken from the act text.
func Analyze(b *Bundle, logger *zap.Logger) (*Analysis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(b.HTML) == "" && len(b.Fragments) == 0 {
		return nil, ErrEmptyDocument
	}

	id := b.DocumentID()
	doc := &models.Document{
		ID:             id,
		Hash:           id,
		Title:          b.Document.Title,
		Number:         b.Document.Number,
		SignDate:       b.Document.SignDate,
		PublicationURL: b.Document.PublicationURL,
		SourcePath:     b.SourcePath,
	}

	a := &Analysis{Document: doc}
	var err error
	if len(b.Fragments) > 0 {
		a.Index, a.Paragraphs, a.Rejected, err = fromFragments(b.Fragments, logger)
	} else {
		a.Index, a.Paragraphs, a.Rejected, err = fromContents(b, logger)
	}
	if err != nil {
		return nil, err
	}

	md := legalhtml.ExtractMetadata(a.Paragraphs)
	if doc.Title == "" {
		doc.Title = md.Title
	}
	if doc.Number == "" {
		doc.Number = md.Number
	}
	if doc.SignDate == "" {
		doc.SignDate = md.Date
	}
	doc.Fragments = a.Index.Len()
	a.Report = a.Index.Validate()
	return a, nil
}

func fromContents(b *Bundle, logger *zap.Logger) (*docindex.Index[contents.Section], []legalhtml.Paragraph, int, error) {
	paras, err := legalhtml.ParseString(b.HTML)
	if err != nil {
		return nil, nil, 0, err
	}
	items, err := contents.Items(b.Contents)
	if err != nil {
		return nil, nil, 0, err
	}
	idx, rejected := contents.Build(items, paras, logger)
	return idx, paras, rejected, nil
}

func fromFragments(frags []BundleFragment, logger *zap.Logger) (*docindex.Index[contents.Section], []legalhtml.Paragraph, int, error) {
	idx := docindex.New[contents.Section](docindex.WithLogger(logger))
	var all []legalhtml.Paragraph
	rejected := 0
	for i, f := range frags {
		paras, err := legalhtml.ParseString(f.HTML)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("fragment %d: %w", i, err)
		}
		all = append(all, paras...)
		links := make([]string, 0)
		seen := make(map[string]bool)
		for _, p := range paras {
			for _, l := range p.Links {
				if !seen[l] {
					seen[l] = true
					links = append(links, l)
				}
			}
		}
		_, ok := idx.Insert(docindex.Fragment[contents.Section]{
			ContentType: f.ContentType,
			RawContent:  f.HTML,
			Content:     contents.Section{Paragraphs: paras},
			Links:       links,
			Start:       f.Start,
			End:         f.End,
			Level:       f.Level,
			Caption:     f.Caption,
		})
		if !ok {
			rejected++
		}
	}
	return idx, all, rejected, nil
}
