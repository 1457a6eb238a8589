package chunker

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/lexrag/internal/tokenizer"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		block Block
		want  SectionType
	}{
		{"citation", Block{Classes: []string{"C"}, Text: "Собрание законодательства"}, SectionCitation},
		{"title", Block{Classes: []string{"T"}, Text: "ФЕДЕРАЛЬНЫЙ ЗАКОН"}, SectionTitle},
		{"header", Block{Classes: []string{"H"}, Text: "Статья 1"}, SectionHeader},
		{"signature", Block{Classes: []string{"I"}, Text: "Президент"}, SectionSignature},
		{"class wins over text", Block{Classes: []string{"H"}, Text: "дополнить статьей 2"}, SectionHeader},
		{"amendment", Block{Text: "Статью 5 изложить в следующей редакции:"}, SectionAmendment},
		{"amendment case", Block{Text: "Дополнить пунктом 3"}, SectionAmendment},
		{"paragraph", Block{Classes: []string{"X"}, Text: "1. Настоящий закон регулирует"}, SectionParagraph},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.block); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSectionTypeString(t *testing.T) {
	for typ, want := range map[SectionType]string{
		SectionHeader:    "header",
		SectionAmendment: "amendment",
		SectionType(42):  "section(42)",
	} {
		if got := typ.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestBuildSections_MergesSmall(t *testing.T) {
	long := "1. Настоящий Федеральный закон регулирует отношения, возникающие при формировании и ведении реестра, а также при его использовании."
	sections := BuildSections([]Block{
		{Classes: []string{"H"}, Text: "Статья 1. Предмет"},
		{Text: long},
		{Text: "а) коротко"},
		{Text: "  "},
		{Classes: []string{"I"}, Text: "Президент"},
	}, 100)

	if len(sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d", len(sections))
	}
	want := []Section{
		{Type: SectionHeader, Level: 1, Heading: "Статья 1. Предмет", Content: "Статья 1. Предмет"},
		{Type: SectionParagraph, Level: 2, Content: long + "\n\nа) коротко"},
		{Type: SectionSignature, Level: 3, Content: "Президент"},
	}
	for i := range want {
		if sections[i] != want[i] {
			t.Errorf("section %d = %+v, want %+v", i, sections[i], want[i])
		}
	}
}

func TestMergeSmallSections_DifferentTypesStaySeparate(t *testing.T) {
	out := MergeSmallSections([]Section{
		{Type: SectionParagraph, Level: 2, Content: "a"},
		{Type: SectionCitation, Level: 3, Content: "b"},
		{Type: SectionCitation, Level: 3, Content: "c"},
	}, 100)
	if len(out) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(out))
	}
	if out[1].Content != "b\n\nc" {
		t.Errorf("Unexpected merged content %q", out[1].Content)
	}
}

func TestSplitSections_GroupsAndOverlaps(t *testing.T) {
	c := New(Config{MaxUnit: 50, OverlapUnit: 20, Unit: UnitChar}, nil)
	p, a, cc, q := strings.Repeat("p", 20), strings.Repeat("a", 10), strings.Repeat("c", 5), strings.Repeat("q", 10)
	chunks, err := c.SplitSections([]Section{
		{Type: SectionHeader, Level: 1, Content: "Статья 1"},
		{Type: SectionParagraph, Level: 2, Content: p},
		{Type: SectionAmendment, Level: 3, Content: a},
		{Type: SectionCitation, Level: 3, Content: cc},
		{Type: SectionParagraph, Level: 2, Content: q},
	})
	if err != nil {
		t.Fatalf("SplitSections failed: %v", err)
	}

	want := []struct {
		content string
		overlap bool
		tags    []string
	}{
		{"Статья 1", false, []string{DocumentTag, "header"}},
		{"Статья 1", true, []string{DocumentTag, "header"}},
		{p + "\n\n" + a + "\n\n" + cc, false, []string{DocumentTag, "paragraph", "amendment", "citation"}},
		{a + "\n\n" + cc, true, []string{DocumentTag, "amendment", "citation"}},
		{q, false, []string{DocumentTag, "paragraph"}},
	}
	if len(chunks) != len(want) {
		t.Fatalf("Expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		ch := chunks[i]
		if ch.Content != w.content || ch.IsOverlap != w.overlap || !reflect.DeepEqual(ch.Tags, w.tags) {
			t.Errorf("chunk %d = {%q overlap=%v tags=%v}, want {%q overlap=%v tags=%v}",
				i, ch.Content, ch.IsOverlap, ch.Tags, w.content, w.overlap, w.tags)
		}
		if ch.ChunkIndex != i || ch.TotalChunks != len(want) {
			t.Errorf("chunk %d: index=%d total=%d", i, ch.ChunkIndex, ch.TotalChunks)
		}
		if ch.TokenCount != ch.CharCount {
			t.Errorf("chunk %d: tokens=%d chars=%d", i, ch.TokenCount, ch.CharCount)
		}
	}
	if chunks[2].TokenCount != 39 {
		t.Errorf("Expected 39 units in the joined chunk, got %d", chunks[2].TokenCount)
	}
}

func TestSplitSections_CountsSeparators(t *testing.T) {
	tests := []struct {
		name       string
		sections   []Section
		wantChunks int
	}{
		{
			name: "separator overflows",
			sections: []Section{
				{Type: SectionHeader, Level: 1, Content: strings.Repeat("h", 50)},
				{Type: SectionSignature, Level: 3, Content: strings.Repeat("s", 50)},
			},
			wantChunks: 2,
		},
		{
			name: "exactly full",
			sections: []Section{
				{Type: SectionAmendment, Level: 3, Content: strings.Repeat("a", 49)},
				{Type: SectionCitation, Level: 3, Content: strings.Repeat("c", 49)},
			},
			wantChunks: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Config{MaxUnit: 100, Unit: UnitChar}, nil)
			chunks, err := c.SplitSections(tt.sections)
			if err != nil {
				t.Fatalf("SplitSections failed: %v", err)
			}
			if len(chunks) != tt.wantChunks {
				t.Fatalf("Expected %d chunks, got %d", tt.wantChunks, len(chunks))
			}
			for i, ch := range chunks {
				if ch.TokenCount > 100 || ch.CharCount > 100 {
					t.Errorf("chunk %d exceeds MaxUnit: tokens=%d chars=%d", i, ch.TokenCount, ch.CharCount)
				}
			}
			if tt.wantChunks == 1 && chunks[0].TokenCount != 100 {
				t.Errorf("Expected a full chunk of 100, got %d", chunks[0].TokenCount)
			}
		})
	}
}

func TestSplitSections_OverlapAfterSingleSection(t *testing.T) {
	c := New(Config{MaxUnit: 100, OverlapUnit: 30, Unit: UnitChar}, nil)
	var sections []Section
	for _, r := range []string{"a", "b", "c"} {
		sections = append(sections, Section{Type: SectionParagraph, Level: 2, Content: strings.Repeat(r, 20)})
	}
	chunks, err := c.SplitSections(sections)
	if err != nil {
		t.Fatalf("SplitSections failed: %v", err)
	}
	if len(chunks) != 5 {
		t.Fatalf("Expected 5 chunks, got %d", len(chunks))
	}
	overlaps := 0
	for _, ch := range chunks {
		if ch.IsOverlap {
			overlaps++
		}
	}
	if overlaps != 2 {
		t.Errorf("Expected 2 overlap chunks, got %d", overlaps)
	}
	if !chunks[1].IsOverlap || chunks[1].Content != strings.Repeat("a", 20) {
		t.Errorf("Unexpected overlap chunk %+v", chunks[1])
	}
}

func TestSplitSections_TailOverlap(t *testing.T) {
	c := New(Config{MaxUnit: 100, OverlapUnit: 10, Unit: UnitChar}, nil)
	chunks, err := c.SplitSections([]Section{
		{Type: SectionParagraph, Level: 2, Content: strings.Repeat("a", 40) + strings.Repeat("b", 10)},
		{Type: SectionParagraph, Level: 2, Content: strings.Repeat("c", 50)},
	})
	if err != nil {
		t.Fatalf("SplitSections failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	ov := chunks[1]
	if !ov.IsOverlap || ov.Content != strings.Repeat("b", 10) || ov.TokenCount != 10 {
		t.Errorf("Unexpected tail overlap %+v", ov)
	}
	if !reflect.DeepEqual(ov.Tags, []string{DocumentTag, "paragraph"}) {
		t.Errorf("Unexpected tags %v", ov.Tags)
	}
}

func TestSplitSections_TokenUnit(t *testing.T) {
	bpe, err := tokenizer.NewBPE("")
	if err != nil {
		t.Fatalf("NewBPE failed: %v", err)
	}
	const maxUnit, overlap = 60, 10
	c := New(Config{MaxUnit: maxUnit, OverlapUnit: overlap, Unit: UnitToken}, bpe)

	sections := []Section{
		{Type: SectionHeader, Level: 1, Content: "Article 1. Scope"},
		{Type: SectionParagraph, Level: 2, Content: "This law governs relations arising in the maintenance of the register."},
		{Type: SectionAmendment, Level: 3, Content: "Amend paragraph 2 to read as follows."},
		{Type: SectionCitation, Level: 3, Content: "Collected Legislation, 2020, No. 1."},
		{Type: SectionAmendment, Level: 3, Content: "Supplement the article with part 3 on the procedure for appeals."},
		{Type: SectionParagraph, Level: 2, Content: "The law enters into force on the day of its official publication."},
	}
	chunks, err := c.SplitSections(sections)
	if err != nil {
		t.Fatalf("SplitSections failed: %v", err)
	}

	joined := false
	for i, ch := range chunks {
		n, err := tokenizer.Count(bpe, ch.Content)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != ch.TokenCount {
			t.Errorf("chunk %d: TokenCount %d, recount %d", i, ch.TokenCount, n)
		}
		limit := maxUnit
		if ch.IsOverlap {
			limit = overlap
		}
		if n > limit {
			t.Errorf("chunk %d has %d tokens, limit %d", i, n, limit)
		}
		if !ch.IsOverlap && strings.Contains(ch.Content, "\n\n") {
			joined = true
		}
	}
	if !joined {
		t.Error("Expected at least one chunk joining several sections")
	}
}

func TestSplitSections_OverflowFlushes(t *testing.T) {
	c := New(Config{MaxUnit: 30, OverlapUnit: 0, Unit: UnitChar}, nil)
	chunks, err := c.SplitSections([]Section{
		{Type: SectionAmendment, Level: 3, Content: strings.Repeat("a", 20)},
		{Type: SectionAmendment, Level: 3, Content: strings.Repeat("b", 20)},
	})
	if err != nil {
		t.Fatalf("SplitSections failed: %v", err)
	}
	if len(chunks) != 2 || chunks[1].Content != strings.Repeat("b", 20) {
		t.Errorf("Unexpected chunks %+v", chunks)
	}
}

func TestSplitSections_OversizedSection(t *testing.T) {
	c := New(Config{MaxUnit: 50, OverlapUnit: 5, Unit: UnitChar}, nil)
	chunks, err := c.SplitSections([]Section{
		{Type: SectionParagraph, Level: 2, Content: strings.Repeat("слово ", 25)},
	})
	if err != nil {
		t.Fatalf("SplitSections failed: %v", err)
	}
	if len(chunks) <= 2 {
		t.Fatalf("Expected more than 2 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.CharCount > 50 {
			t.Errorf("chunk %d has %d runes", i, ch.CharCount)
		}
		if !reflect.DeepEqual(ch.Tags, []string{DocumentTag, "paragraph"}) {
			t.Errorf("chunk %d tags %v", i, ch.Tags)
		}
	}
}

func TestSplitParagraphs(t *testing.T) {
	c := New(Config{MaxUnit: 30, OverlapUnit: 12, Unit: UnitChar}, nil)
	a, b, cc, d := strings.Repeat("a", 10), strings.Repeat("b", 10), strings.Repeat("c", 10), strings.Repeat("d", 4)

	chunks, err := c.Split(a + "\n\n" + b + "\r\n\r\n" + cc + "\n\n\n\n" + d)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != a+"\n\n"+b {
		t.Errorf("chunk 0 = %q", chunks[0].Content)
	}
	if chunks[1].Content != b || !chunks[1].IsOverlap {
		t.Errorf("chunk 1 = %+v", chunks[1])
	}
	if chunks[2].Content != cc+"\n\n"+d || chunks[2].TotalChunks != 3 {
		t.Errorf("chunk 2 = %+v", chunks[2])
	}
}

func TestSplitParagraphs_LongParagraph(t *testing.T) {
	c := New(Config{MaxUnit: 30, OverlapUnit: 5, Unit: UnitChar}, nil)
	chunks, err := c.SplitParagraphs("вступление\n\n" + strings.Repeat("x", 70))
	if err != nil {
		t.Fatalf("SplitParagraphs failed: %v", err)
	}
	if len(chunks) < 4 {
		t.Fatalf("Expected at least 4 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "вступление" {
		t.Errorf("chunk 0 = %q", chunks[0].Content)
	}
	for i, ch := range chunks {
		if ch.CharCount > 30 || ch.ChunkIndex != i {
			t.Errorf("chunk %d: chars=%d index=%d", i, ch.CharCount, ch.ChunkIndex)
		}
	}
}
