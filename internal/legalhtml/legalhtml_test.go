package legalhtml

import (
	"reflect"
	"strings"
	"testing"
)

const sampleAct = `<html><body>
<div id="header"><p id="p0">navigation</p></div>
<div id="text_content">
<p id="p1" class="T">ФЕДЕРАЛЬНЫЙ ЗАКОН</p>
<p id="p2" class="T">О внесении изменений в статью 11<span class="W9">3</span> Налогового кодекса</p>
<p id="p3" class="I">Принят Государственной Думой 20 ноября 2025&nbsp;года</p>
<p id="p4" class="H">Статья 1</p>
<p id="p5"><span class="edx">12.&nbsp;Установить, что сумма H<span class="W8">2</span>O не превышает 10&nbsp;000&nbsp;рублей <span class="cmd-hide" cmdprm="gohash=b113c2e0 goparaid=0 goback=0">Налогового кодекса</span>.</span><span class="markx">&nbsp;(Дополнение частью - Федеральный закон <span class="cmd-hide" cmdprm="gohash=9ba1e799 goparaid=p1787 goback=1">от&nbsp;28.11.2025</span>)</span></p>
<p id="p6">первая строка<br>вторая строка <span class="cmd" cmdprm="gohash=b113c2e0">ссылка</span></p>
<p id="p7" class="I">28 ноября 2025 года № 425-ФЗ</p>
<p>без номера</p>
</div>
</body></html>`

func parseSample(t *testing.T) []Paragraph {
	t.Helper()
	paras, err := ParseString(sampleAct)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	if len(paras) != 7 {
		t.Fatalf("got %d paragraphs, want 7", len(paras))
	}
	return paras
}

func TestParseParagraphs(t *testing.T) {
	paras := parseSample(t)

	for i, p := range paras {
		if p.Number != i+1 {
			t.Errorf("paragraph %d has number %d", i, p.Number)
		}
	}
	p := paras[3]
	if p.ID != "p4" || !p.HasClass("H") || !strings.Contains(p.HTML, `<p id="p4" class="H">`) {
		t.Errorf("unexpected paragraph %+v", p)
	}
}

func TestConvert(t *testing.T) {
	paras := parseSample(t)

	tests := []struct {
		index int
		want  string
	}{
		{1, "О внесении изменений в статью 11^3 Налогового кодекса"},
		{4, "12. Установить, что сумма H_2O не превышает 10 000 рублей Налогового кодекса."},
		{5, "первая строка\nвторая строка ссылка"},
	}
	for _, tt := range tests {
		if got := paras[tt.index].Text; got != tt.want {
			t.Errorf("paragraph %d text = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestLinks(t *testing.T) {
	paras := parseSample(t)

	if got := paras[4].Links; !reflect.DeepEqual(got, []string{"b113c2e0", "9ba1e799"}) {
		t.Errorf("paragraph 5 links = %v", got)
	}
	if got := paras[5].Links; !reflect.DeepEqual(got, []string{"b113c2e0"}) {
		t.Errorf("paragraph 6 links = %v", got)
	}
	if len(paras[0].Links) != 0 {
		t.Errorf("paragraph 1 links = %v", paras[0].Links)
	}
}

func TestConvertString(t *testing.T) {
	text, err := ConvertString(`x<span class="W9">2</span> + y<span class="mark">[скрыто]</span>`)
	if err != nil {
		t.Fatalf("ConvertString failed: %v", err)
	}
	if text != "x^2 + y" {
		t.Errorf("ConvertString = %q", text)
	}
}

func TestExtractMetadata(t *testing.T) {
	md := ExtractMetadata(parseSample(t))
	if md.Number != "28 ноября 2025 года № 425-ФЗ" {
		t.Errorf("Number = %q", md.Number)
	}
	if md.Date != "Принят Государственной Думой 20 ноября 2025 года" {
		t.Errorf("Date = %q", md.Date)
	}
	if md.Title != "О внесении изменений в статью 11^3 Налогового кодекса" {
		t.Errorf("Title = %q", md.Title)
	}
}

func TestText(t *testing.T) {
	if got := Text([]Paragraph{{Text: "a"}, {Text: ""}, {Text: "b"}}); got != "a\n\nb" {
		t.Errorf("Text = %q", got)
	}
}

func TestLeadingText(t *testing.T) {
	long := Paragraph{Text: string(make([]rune, 300))}
	if n := len([]rune(long.LeadingText())); n != 200 {
		t.Errorf("LeadingText has %d runes, want 200", n)
	}
}
