package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// GuideURI identifies the project guide resource.
const GuideURI = "inkwell://guide"

// Guide describes how projects are organised for LLM consumers that create
// or edit documents.
const Guide = `# Inkwell Project Guide

A workspace holds projects. Every tool except list_projects and
create_project takes the project name.

## Layout

` + "```" + `
<project>/
  project.db                          catalog (source of truth)
  md/<document-id>.md                 one Markdown file per document
  assets/characters/<character-id>/   imported character images
  backups/backup_YYYYMMDD_HHMMSS.zip  backups
` + "```" + `

Files under md/ are a mirror of the catalog. Edit documents with
save_document, never by writing the files: out-of-band edits are
overwritten by the next reconcile.

## Documents

- Bodies are UTF-8 Markdown. New documents start as "# New Document".
- create_document without a title takes the frontmatter "title" or the
  first "# " heading of the content, falling back to "Untitled".
- Take a snapshot before a large rewrite so it can be restored later.

## Folders

delete_folder removes the folder and everything below it: subfolders,
documents, their snapshots and characters. It cannot be undone except by
restoring a backup.

## Characters

save_character replaces the whole profile. Send every field you want to
keep. attributes may be a list (stored as JSON) or a string (stored as is).
Images are uploaded with upload_character_image and stored under the
character's asset directory; set the returned path as the profile image.
`

func (s *Server) readGuideResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GuideURI,
			MIMEType: "text/markdown",
			Text:     Guide,
		},
	}, nil
}
