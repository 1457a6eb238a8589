package search

import "github.com/hyperjump/lexrag/pkg/utils"

// Snippet flattens whitespace and cuts content to maxRunes for display.
func Snippet(content string, maxRunes int) string {
	flat := utils.CollapseSpaces(content)
	if maxRunes <= 0 {
		return flat
	}
	return utils.Truncate(flat, maxRunes)
}
