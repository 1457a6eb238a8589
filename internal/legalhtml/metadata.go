package legalhtml

import "strings"

// Metadata holds the act attributes found in its own text.
type Metadata struct {
	Number string `json:"number,omitempty"`
	Date   string `json:"date,omitempty"`
	Title  string `json:"title,omitempty"`
}

// ExtractMetadata reads the law number from the first I-paragraph that
// mentions "№" and "ФЗ", the date from the first I- or T-paragraph that
// mentions "года", and the title from the second T-paragraph.
func ExtractMetadata(paras []Paragraph) Metadata {
	var md Metadata
	for _, p := range paras {
		if p.HasClass("I") && strings.Contains(p.Text, "№") && strings.Contains(p.Text, "ФЗ") {
			md.Number = p.Text
			break
		}
	}

	for _, class := range []string{"I", "T"} {
		for _, p := range paras {
			if p.HasClass(class) && strings.Contains(p.Text, "года") {
				md.Date = p.Text
				break
			}
		}
		if md.Date != "" {
			break
		}
	}

	titles := 0
	for _, p := range paras {
		if !p.HasClass("T") {
			continue
		}
		titles++
		if titles == 2 {
			md.Title = p.Text
			break
		}
	}
	return md
}
