// Package records turns chunks into the records stored for retrieval.
package records

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/lexrag/internal/chunker"
	"github.com/hyperjump/lexrag/internal/docindex"
	"github.com/hyperjump/lexrag/internal/models"
)

// DefaultDocumentURLFormat links to the act on the publishing portal.
const DefaultDocumentURLFormat = "http://actual.pravo.gov.ru/list.html#hash=%s"

// ArticleUnit is the unit name of an article in the table of contents.
const ArticleUnit = "статья"

// Namespace seeds the deterministic record IDs.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("http://actual.pravo.gov.ru"))

// Source is the fragment context shared by all chunks of one fragment.
type Source struct {
	Handle      docindex.Handle
	SectionPath string
	Article     string
	ContentType string
	Start       int
	End         int
	Level       int
	Links       []string
}

// SourceOf describes the fragment h of idx. The article is the caption of the
// closest enclosing article, or of the root when there is none.
func SourceOf[T any](idx *docindex.Index[T], h docindex.Handle) Source {
	f, ok := idx.Get(h)
	if !ok {
		return Source{}
	}
	chain := append(idx.FindAncestorChain(f.Start, f.End, f.Level), f)
	article := ""
	for i := len(chain) - 1; i >= 0; i-- {
		if strings.EqualFold(chain[i].ContentType, ArticleUnit) {
			article = docindex.CleanCaption(chain[i].Caption)
			break
		}
	}
	if article == "" {
		article = docindex.CleanCaption(chain[0].Caption)
	}
	return Source{
		Handle:      h,
		SectionPath: idx.Breadcrumb(f),
		Article:     article,
		ContentType: f.ContentType,
		Start:       f.Start,
		End:         f.End,
		Level:       f.Level,
		Links:       f.Links,
	}
}

// DocumentURL formats the portal link for a document hash.
func DocumentURL(format, hash string) string {
	if hash == "" {
		return ""
	}
	if format == "" {
		format = DefaultDocumentURLFormat
	}
	return fmt.Sprintf(format, hash)
}

// ID derives a stable record ID from the document hash, the fragment and the
// chunk index, so re-ingesting a document yields the same IDs. The handle
// tells apart same-level fragments that share a range start.
func ID(hash string, src Source, chunkIndex int) string {
	name := fmt.Sprintf("%s:%d:%d:%d:%d:%d", hash, src.Start, src.End, src.Level, src.Handle, chunkIndex)
	return uuid.NewSHA1(Namespace, []byte(name)).String()
}

// EmbeddingText prefixes content with the document title and article.
func EmbeddingText(title, article, content string) string {
	var sb strings.Builder
	if title != "" {
		fmt.Fprintf(&sb, "Документ: %s\n", title)
	}
	if article != "" {
		fmt.Fprintf(&sb, "Статья: %s\n", article)
	}
	sb.WriteString(content)
	return sb.String()
}

// Build creates one record per chunk of a fragment.
func Build(doc *models.Document, src Source, chunks []chunker.Chunk) []*models.ChunkRecord {
	out := make([]*models.ChunkRecord, 0, len(chunks))
	for _, ch := range chunks {
		path := ch.SectionPath
		if path == "" {
			path = src.SectionPath
		}
		rec := &models.ChunkRecord{
			ID:             ID(doc.Hash, src, ch.ChunkIndex),
			DocumentID:     doc.ID,
			DocumentHash:   doc.Hash,
			Title:          doc.Title,
			Number:         doc.Number,
			SignDate:       doc.SignDate,
			PublicationURL: doc.PublicationURL,
			DocumentURL:    doc.DocumentURL,
			SectionPath:    path,
			Article:        src.Article,
			FragmentStart:  src.Start,
			FragmentEnd:    src.End,
			FragmentLevel:  src.Level,
			ContentType:    src.ContentType,
			Content:        ch.Content,
			EmbeddingText:  EmbeddingText(doc.Title, src.Article, ch.Content),
			ChunkIndex:     ch.ChunkIndex,
			TotalChunks:    ch.TotalChunks,
			TokenCount:     ch.TokenCount,
			CharCount:      ch.CharCount,
			IsOverlap:      ch.IsOverlap,
			Links:          src.Links,
			Tags:           ch.Tags,
		}
		if ch.Span != nil {
			rec.Span = &models.Span{Start: ch.Span.Start, End: ch.Span.End}
		}
		out = append(out, rec)
	}
	return out
}
