// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Inkwell project tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/inkwell/internal/parser"
	"github.com/starford/inkwell/internal/store"
)

// Server wraps the MCP server with Inkwell tools.
type Server struct {
	mcp *server.MCPServer
	reg *store.Registry
}

// New creates a new MCP server with all Inkwell tools registered.
func New(reg *store.Registry, version string) *Server {
	s := &Server{reg: reg}

	s.mcp = server.NewMCPServer(
		"Inkwell",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	project := mcp.WithString("project", mcp.Required(), mcp.Description("Project name"))

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List the projects in the workspace."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("create_project",
		mcp.WithDescription("Create a new empty project."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name (letters, digits, space, '.', '_', '-')")),
	), s.createProject)

	s.mcp.AddTool(mcp.NewTool("list_tree",
		mcp.WithDescription("List all folders, documents and characters of a project as JSON."),
		project,
	), s.listTree)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full Markdown body of a document."),
		project,
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a document. When content is given it becomes the body and, "+
			"if no title is given, the title is taken from its frontmatter or first H1 heading. "+
			"See the inkwell://guide resource for conventions."),
		project,
		mcp.WithString("title", mcp.Description("Document title")),
		mcp.WithString("content", mcp.Description("Initial Markdown body")),
		mcp.WithString("folder_id", mcp.Description("Folder to place the document in (empty for top level)")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("save_document",
		mcp.WithDescription("Replace the Markdown body of a document."),
		project,
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown body")),
	), s.saveDocument)

	s.mcp.AddTool(mcp.NewTool("create_folder",
		mcp.WithDescription("Create a folder."),
		project,
		mcp.WithString("name", mcp.Required(), mcp.Description("Folder name")),
		mcp.WithString("parent_id", mcp.Description("Parent folder id (empty for top level)")),
	), s.createFolder)

	s.mcp.AddTool(mcp.NewTool("delete_folder",
		mcp.WithDescription("Delete a folder together with every folder, document and character below it."),
		project,
		mcp.WithString("id", mcp.Required(), mcp.Description("Folder id")),
	), s.deleteFolder)

	s.mcp.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Full-text search through document bodies. Matches are wrapped in <b></b>."),
		project,
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.search)

	s.mcp.AddTool(mcp.NewTool("create_snapshot",
		mcp.WithDescription("Record the current body of a document as a snapshot."),
		project,
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("note", mcp.Description("Short description of the snapshot")),
	), s.createSnapshot)

	s.mcp.AddTool(mcp.NewTool("read_character",
		mcp.WithDescription("Read a character with its profile as JSON."),
		project,
		mcp.WithString("id", mcp.Required(), mcp.Description("Character id")),
	), s.readCharacter)

	s.mcp.AddTool(mcp.NewTool("save_character",
		mcp.WithDescription("Replace a character profile. Fields left out are cleared."),
		project,
		mcp.WithString("id", mcp.Required(), mcp.Description("Character id")),
		mcp.WithObject("profile", mcp.Required(),
			mcp.Description("Profile fields: age, nationality, sexuality, height, image (strings) and attributes (list or string)")),
	), s.saveCharacter)

	s.mcp.AddTool(mcp.NewTool("upload_character_image",
		mcp.WithDescription("Download an image (http/https URL or base64 data URI) into a character's asset directory."),
		project,
		mcp.WithString("id", mcp.Required(), mcp.Description("Character id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Image URL or data URI")),
		mcp.WithString("filename", mcp.Description("File name to save as (derived from the URL when empty)")),
	), s.uploadCharacterImage)

	s.mcp.AddTool(mcp.NewTool("backup",
		mcp.WithDescription("Write a zip backup of the project's catalog and document files."),
		project,
	), s.backup)

	s.mcp.AddResource(
		mcp.NewResource(GuideURI, "Inkwell Project Guide",
			mcp.WithResourceDescription("Project layout and document conventions."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) projectStore(req mcp.CallToolRequest) (*store.Store, error) {
	name, err := req.RequireString("project")
	if err != nil {
		return nil, err
	}
	return s.reg.Get(name)
}

func optional(req mcp.CallToolRequest, key string) string {
	v, err := req.RequireString(key)
	if err != nil {
		return ""
	}
	return v
}

func optionalID(req mcp.CallToolRequest, key string) *string {
	if v := optional(req, key); v != "" {
		return &v
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listProjects(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.reg.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(names)
}

func (s *Server) createProject(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := s.reg.Create(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", st.Root())), nil
}

func (s *Server) listTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.projectStore(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tr, err := st.ListTree(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tr)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.projectStore(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	md, err := st.LoadDocument(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.projectStore(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content := optional(req, "content")
	title := optional(req, "title")
	if title == "" {
		title = parser.Title(content, "Untitled")
	}

	doc, err := st.CreateDocument(ctx, title, optionalID(req, "folder_id"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if content != "" {
		if err := st.SaveDocument(ctx, doc.ID, content); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return jsonResult(doc)
}

func (s *Server) saveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.projectStore(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := st.SaveDocument(ctx, id, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", id)), nil
}

func (s *Server) createFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.projectStore(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := st.CreateFolder(ctx, name, optionalID(req, "parent_id"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(f)
}

func (s *Server) deleteFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.projectStore(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep, err := st.DeleteFolder(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep)
}

func (s *Server) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.projectStore(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := st.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(hits)
}

func (s *Server) createSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.projectStore(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := st.CreateSnapshot(ctx, id, optional(req, "note"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(snap)
}

func (s *Server) readCharacter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.projectStore(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := st.LoadCharacter(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c)
}

func (s *Server) saveCharacter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.projectStore(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	profile, ok := req.GetArguments()["profile"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("profile must be an object"), nil
	}
	if err := st.SaveCharacter(ctx, id, profile); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", id)), nil
}

func (s *Server) backup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.projectStore(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info, err := st.Backup(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(info)
}
