package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Scene A\npov: Ada\n---\n# Heading\nBody text.\n")
	r := Parse(input)
	if r.Title != "Scene A" {
		t.Errorf("title = %q, want %q", r.Title, "Scene A")
	}
	if r.Frontmatter["pov"] != "Ada" {
		t.Errorf("frontmatter = %v", r.Frontmatter)
	}
	if r.Body != "# Heading\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r := Parse([]byte("# Just a heading\nSome text.\n"))
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	r := Parse([]byte(input))
	// Invalid YAML falls back to treating everything as body.
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != input {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	r := Parse([]byte("---\ntitle: x\nno closing fence"))
	if r.Frontmatter != nil || r.Title != "" {
		t.Errorf("result = %+v", r)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	if title := deriveTitle(fm, "# H1 Title\ntext"); title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	if title := deriveTitle(nil, "some text\n# My Heading\nmore"); title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}

func TestDeriveTitle_NonStringFrontmatter(t *testing.T) {
	fm := map[string]any{"title": 42}
	if title := deriveTitle(fm, "## Sub\n# Top"); title != "Top" {
		t.Errorf("title = %q, want %q", title, "Top")
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		markdown, want string
	}{
		{"# New Document", "New Document"},
		{"no heading here", "Untitled"},
		{"", "Untitled"},
		{"---\ntitle: From FM\n---\ntext", "From FM"},
	}
	for _, tt := range tests {
		if got := Title(tt.markdown, "Untitled"); got != tt.want {
			t.Errorf("Title(%q) = %q, want %q", tt.markdown, got, tt.want)
		}
	}
}
