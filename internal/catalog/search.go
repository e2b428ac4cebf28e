package catalog

// Search result shaping shared by the FTS5 and fallback implementations.
const (
	MaxSearchResults = 50
	SnippetWords     = 12
	HighlightOpen    = "<b>"
	HighlightClose   = "</b>"
	Ellipsis         = "…"
)

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxSearchResults {
		return MaxSearchResults
	}
	return limit
}
