//go:build !sqlite_fts5

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/inkwell/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search scans Body.markdown with LIKE.
	return nil
}

func ftsUpsert(_ context.Context, _ querier, _, _ string) error {
	// Body is already the searchable column; nothing extra to do.
	return nil
}

func ftsDelete(_ context.Context, _ querier, _ string) error { return nil }

// Search performs a LIKE-based token search (fallback when FTS5 is not
// compiled in). Every whitespace-separated token must occur in the body.
// Hits are ranked by how often the tokens occur, ties in creation order.
func (q *Queries) Search(ctx context.Context, query string, limit int) ([]models.SearchHit, error) {
	limit = clampLimit(limit)
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return []models.SearchHit{}, nil
	}

	var where []string
	args := make([]any, 0, len(tokens))
	for _, tok := range tokens {
		where = append(where, `Body.markdown LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(tok)+"%")
	}

	rows, err := q.q.QueryContext(ctx, `
		SELECT Document.id, Body.markdown
		FROM Body
		JOIN Document ON Document.id = Body.document_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY Document.created_at ASC, Document.rowid ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	type match struct {
		id, markdown string
		score        int
	}
	var matches []match
	for rows.Next() {
		var m match
		if err := rows.Scan(&m.id, &m.markdown); err != nil {
			return nil, err
		}
		m.score = occurrences(m.markdown, tokens)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]models.SearchHit, 0, len(matches))
	for _, m := range matches {
		out = append(out, models.SearchHit{DocumentID: m.id, Snippet: snippet(m.markdown, tokens, SnippetWords)})
	}
	return out, nil
}

// occurrences counts case-insensitive occurrences of every token in text.
func occurrences(text string, tokens []string) int {
	lt := strings.ToLower(text)
	n := 0
	for _, t := range tokens {
		n += strings.Count(lt, strings.ToLower(t))
	}
	return n
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// snippet returns a window of at most size words centred on the first word
// matching any token, with matches wrapped in highlight markers.
func snippet(text string, tokens []string, size int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	lowered := make([]string, len(tokens))
	for i, t := range tokens {
		lowered[i] = strings.ToLower(t)
	}

	first := 0
	for i, w := range words {
		if matchesAny(strings.ToLower(w), lowered) {
			first = i
			break
		}
	}

	start := max(first-size/2, 0)
	end := min(start+size, len(words))
	start = max(end-size, 0)

	var b strings.Builder
	if start > 0 {
		b.WriteString(Ellipsis)
	}
	for i := start; i < end; i++ {
		if i > start {
			b.WriteByte(' ')
		}
		b.WriteString(highlight(words[i], lowered))
	}
	if end < len(words) {
		b.WriteString(Ellipsis)
	}
	return b.String()
}

func matchesAny(word string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(word, t) {
			return true
		}
	}
	return false
}

// highlight wraps the first occurrence of any token in word. When lowering
// changes the byte length the whole word is wrapped instead.
func highlight(word string, tokens []string) string {
	lw := strings.ToLower(word)
	for _, t := range tokens {
		idx := strings.Index(lw, t)
		if idx < 0 {
			continue
		}
		if len(lw) != len(word) {
			return HighlightOpen + word + HighlightClose
		}
		end := idx + len(t)
		return word[:idx] + HighlightOpen + word[idx:end] + HighlightClose + word[end:]
	}
	return word
}
