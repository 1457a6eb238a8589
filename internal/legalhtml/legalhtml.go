// Package legalhtml reads the paragraph markup of published legal acts: one
// <p id="pN"> per paragraph, class markers on the paragraph and inline spans
// for superscripts, subscripts, editorial marks and cross references.
package legalhtml

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContentRootID is the element that wraps the act text on the publishing portal.
const ContentRootID = "text_content"

var (
	paragraphID = regexp.MustCompile(`^p(\d+)$`)
	goHash      = regexp.MustCompile(`gohash=([0-9a-fA-F]+)`)
)

// Paragraph is one numbered paragraph of an act.
type Paragraph struct {
	Number  int      `json:"number"`
	ID      string   `json:"id"`
	Classes []string `json:"classes,omitempty"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
	Links   []string `json:"links,omitempty"`
}

func (p Paragraph) HasClass(name string) bool {
	for _, c := range p.Classes {
		if c == name {
			return true
		}
	}
	return false
}

// LeadingText returns the first 200 runes of the paragraph text.
func (p Paragraph) LeadingText() string {
	if utf8.RuneCountInString(p.Text) <= 200 {
		return p.Text
	}
	return string([]rune(p.Text)[:200])
}

// ParseParagraphs returns the numbered paragraphs in document order. When the
// page has a #text_content element only its subtree is read.
func ParseParagraphs(r io.Reader) ([]Paragraph, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	root := doc
	if n := findByID(doc, ContentRootID); n != nil {
		root = n
	}

	var paras []Paragraph
	var walk func(*html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode && n.Data == "p" {
			if m := paragraphID.FindStringSubmatch(attr(n, "id")); m != nil {
				num, err := strconv.Atoi(m[1])
				if err != nil {
					return fmt.Errorf("paragraph id %q: %w", m[0], err)
				}
				var buf bytes.Buffer
				if err := html.Render(&buf, n); err != nil {
					return fmt.Errorf("render paragraph %s: %w", m[0], err)
				}
				paras = append(paras, Paragraph{
					Number:  num,
					ID:      m[0],
					Classes: strings.Fields(attr(n, "class")),
					HTML:    buf.String(),
					Text:    strings.TrimSpace(Convert(n)),
					Links:   Links(n),
				})
				return nil
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return paras, nil
}

// ParseString is ParseParagraphs over a string.
func ParseString(s string) ([]Paragraph, error) {
	return ParseParagraphs(strings.NewReader(s))
}

// Convert renders the text of n. Superscripts (span.W9) become "^x",
// subscripts (span.W8) become "_x", editorial marks (span.mark, span.markx)
// are dropped, non-breaking spaces become spaces and <br> a newline.
func Convert(n *html.Node) string {
	var c converter
	c.node(n)
	return c.sb.String()
}

// ConvertString converts an HTML fragment.
func ConvertString(fragment string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return "", fmt.Errorf("parse html fragment: %w", err)
	}
	var c converter
	for _, n := range nodes {
		c.node(n)
	}
	return c.sb.String(), nil
}

type converter struct {
	sb      strings.Builder
	pending string
}

func (c *converter) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		text := strings.ReplaceAll(n.Data, "\u00a0", " ")
		if c.pending != "" && strings.TrimSpace(text) != "" {
			c.sb.WriteString(c.pending)
			c.pending = ""
		}
		c.sb.WriteString(text)
		return
	case html.ElementNode:
		switch n.Data {
		case "br":
			c.sb.WriteString("\n")
			return
		case "script", "style":
			return
		case "span":
			switch {
			case hasClass(n, "mark"), hasClass(n, "markx"):
				return
			case hasClass(n, "W9"):
				c.pending = "^"
				defer c.clear()
			case hasClass(n, "W8"):
				c.pending = "_"
				defer c.clear()
			}
		}
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.node(ch)
	}
}

func (c *converter) clear() { c.pending = "" }

// Links returns the distinct gohash targets referenced under n, in order.
func Links(n *html.Node) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if m := goHash.FindStringSubmatch(attr(n, "cmdprm")); m != nil && !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// Text joins the converted paragraph texts with blank lines.
func Text(paras []Paragraph) string {
	parts := make([]string, 0, len(paras))
	for _, p := range paras {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if strings.EqualFold(c, class) {
			return true
		}
	}
	return false
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
