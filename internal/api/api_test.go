package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/store"
	"github.com/starford/inkwell/internal/testutil"
)

// testEnv sets up a temp workspace, registry, and router for testing.
// A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) (*store.Registry, http.Handler) {
	t.Helper()
	reg := testutil.TestRegistry(t)
	return reg, NewRouter(reg, authToken != "", authToken, nil)
}

// testProject creates project "novel" and returns a router over it.
func testProject(t *testing.T) (*store.Store, http.Handler) {
	t.Helper()
	reg, router := testEnv(t, "")
	s, err := reg.Create("novel")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return s, router
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestCreateAndListProjects(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/projects", map[string]string{"name": "novel"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	p := decode[ProjectResponse](t, w)
	if p.Name != "novel" || !strings.HasSuffix(p.Path, "novel") {
		t.Errorf("project = %+v", p)
	}

	w = do(t, router, http.MethodPost, "/projects", map[string]string{"name": "novel"})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d", w.Code)
	}
	w = do(t, router, http.MethodPost, "/projects", map[string]string{"name": "../x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid name status = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/projects", nil)
	got := decode[map[string][]string](t, w)
	if len(got["projects"]) != 1 || got["projects"][0] != "novel" {
		t.Errorf("projects = %v", got)
	}

	w = do(t, router, http.MethodGet, "/projects/novel/", nil)
	if w.Code != http.StatusOK {
		t.Errorf("open status = %d", w.Code)
	}
}

func TestUnknownProject(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/projects/missing/tree", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if e := decode[errResponse](t, w); e.Error == "" {
		t.Error("error message is empty")
	}
}

func TestFolderDocumentFlow(t *testing.T) {
	s, router := testProject(t)

	w := do(t, router, http.MethodPost, "/projects/novel/folders", map[string]any{"name": "Chapter 1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create folder = %d, body = %s", w.Code, w.Body.String())
	}
	folder := decode[models.Folder](t, w)

	w = do(t, router, http.MethodPost, "/projects/novel/documents",
		map[string]any{"title": "Scene A", "folder_id": folder.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("create document = %d, body = %s", w.Code, w.Body.String())
	}
	doc := decode[models.Document](t, w)

	w = do(t, router, http.MethodPut, "/projects/novel/documents/"+doc.ID, map[string]string{"markdown": "# Scene A\n\nDusk."})
	if w.Code != http.StatusNoContent {
		t.Fatalf("save = %d, body = %s", w.Code, w.Body.String())
	}
	data, err := os.ReadFile(filepath.Join(s.Root(), "md", doc.ID+".md"))
	if err != nil || string(data) != "# Scene A\n\nDusk." {
		t.Errorf("mirror = %q, %v", data, err)
	}

	w = do(t, router, http.MethodGet, "/projects/novel/documents/"+doc.ID, nil)
	if got := decode[DocumentResponse](t, w); got.Markdown != "# Scene A\n\nDusk." {
		t.Errorf("load = %+v", got)
	}

	w = do(t, router, http.MethodGet, "/projects/novel/tree", nil)
	tr := decode[models.Tree](t, w)
	if len(tr.Folders) != 1 || len(tr.Documents) != 1 || *tr.Documents[0].FolderID != folder.ID {
		t.Errorf("tree = %+v", tr)
	}

	w = do(t, router, http.MethodDelete, "/projects/novel/folders/"+folder.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete folder = %d, body = %s", w.Code, w.Body.String())
	}
	if rep := decode[map[string][]string](t, w); len(rep["documents"]) != 1 || rep["documents"][0] != doc.ID {
		t.Errorf("report = %v", rep)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "md", doc.ID+".md")); !os.IsNotExist(err) {
		t.Errorf("mirror file still present: %v", err)
	}
}

func TestUpdateFolderAndDocument(t *testing.T) {
	s, router := testProject(t)
	ctx := context.Background()
	a, _ := s.CreateFolder(ctx, "A", nil)
	b, _ := s.CreateFolder(ctx, "B", nil)
	doc, _ := s.CreateDocument(ctx, "Untitled", nil)

	w := do(t, router, http.MethodPatch, "/projects/novel/folders/"+b.ID, map[string]any{"name": "Beta", "parent_id": a.ID})
	if w.Code != http.StatusNoContent {
		t.Fatalf("patch folder = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPatch, "/projects/novel/folders/"+a.ID, map[string]any{"parent_id": b.ID})
	if w.Code != http.StatusBadRequest {
		t.Errorf("cycle move = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPatch, "/projects/novel/folders/"+a.ID, map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty patch = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPatch, "/projects/novel/documents/"+doc.ID, map[string]any{"title": "Opening", "folder_id": b.ID})
	if w.Code != http.StatusNoContent {
		t.Fatalf("patch document = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPatch, "/projects/novel/documents/"+doc.ID, map[string]any{"folder_id": nil})
	if w.Code != http.StatusNoContent {
		t.Fatalf("move to top = %d", w.Code)
	}

	tr, _ := s.ListTree(ctx)
	if tr.Documents[0].Title != "Opening" || tr.Documents[0].FolderID != nil {
		t.Errorf("document = %+v", tr.Documents[0])
	}
	for _, f := range tr.Folders {
		if f.ID == b.ID && (f.Name != "Beta" || f.ParentID == nil || *f.ParentID != a.ID) {
			t.Errorf("folder = %+v", f)
		}
	}
}

func TestDocumentNotFound(t *testing.T) {
	_, router := testProject(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/projects/novel/documents/nope"},
		{http.MethodDelete, "/projects/novel/documents/nope"},
		{http.MethodDelete, "/projects/novel/folders/nope"},
		{http.MethodGet, "/projects/novel/characters/nope"},
	} {
		w := do(t, router, tc.method, tc.path, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s = %d, want 404", tc.method, tc.path, w.Code)
		}
	}
	w := do(t, router, http.MethodPut, "/projects/novel/documents/nope", map[string]string{"markdown": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("save missing = %d, want 404", w.Code)
	}
}

func TestMirrorFailureReported(t *testing.T) {
	s, router := testProject(t)
	doc, err := s.CreateDocument(context.Background(), "Scene", nil)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(s.Root(), "md", doc.ID+".md")
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodPut, "/projects/novel/documents/"+doc.ID, map[string]string{"markdown": "x"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	msg := decode[map[string]string](t, w)["error"]
	if !strings.HasPrefix(msg, "save document failed: ") || !strings.Contains(msg, "mirror") {
		t.Errorf("error = %q, want a description of the mirror failure", msg)
	}
}

func TestInvalidJSON(t *testing.T) {
	_, router := testProject(t)
	req := httptest.NewRequest(http.MethodPost, "/projects/novel/folders", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCharacterFlow(t *testing.T) {
	_, router := testProject(t)

	w := do(t, router, http.MethodPost, "/projects/novel/characters", map[string]any{"name": "Ada"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	c := decode[models.Character](t, w)

	w = do(t, router, http.MethodPut, "/projects/novel/characters/"+c.ID, map[string]any{"age": "30", "attributes": []string{"brave"}})
	if w.Code != http.StatusNoContent {
		t.Fatalf("save = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPatch, "/projects/novel/characters/"+c.ID, map[string]any{"name": "Ada L."})
	if w.Code != http.StatusNoContent {
		t.Fatalf("rename = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/projects/novel/characters/"+c.ID, nil)
	got := decode[models.Character](t, w)
	if got.Name != "Ada L." || got.Age != "30" || got.Nationality != "" || got.Attributes != `["brave"]` {
		t.Errorf("character = %+v", got)
	}

	w = do(t, router, http.MethodDelete, "/projects/novel/characters/"+c.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d", w.Code)
	}
}

func TestSnapshotsEndpoints(t *testing.T) {
	s, router := testProject(t)
	ctx := context.Background()
	doc, _ := s.CreateDocument(ctx, "Scene", nil)
	_ = s.SaveDocument(ctx, doc.ID, "draft one")

	w := do(t, router, http.MethodPost, "/projects/novel/documents/"+doc.ID+"/snapshots", map[string]string{"note": "v1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("snapshot = %d, body = %s", w.Code, w.Body.String())
	}
	snap := decode[models.Snapshot](t, w)
	_ = s.SaveDocument(ctx, doc.ID, "draft two")

	w = do(t, router, http.MethodGet, "/projects/novel/documents/"+doc.ID+"/snapshots", nil)
	list := decode[map[string][]models.Snapshot](t, w)
	if len(list["snapshots"]) != 1 || list["snapshots"][0].Note != "v1" {
		t.Errorf("snapshots = %+v", list)
	}

	w = do(t, router, http.MethodPost, "/projects/novel/snapshots/"+snap.ID+"/restore", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("restore = %d, body = %s", w.Code, w.Body.String())
	}
	if md, _ := s.LoadDocument(ctx, doc.ID); md != "draft one" {
		t.Errorf("body after restore = %q", md)
	}
}

func TestSearchEndpoint(t *testing.T) {
	s, router := testProject(t)
	ctx := context.Background()
	doc, _ := s.CreateDocument(ctx, "Scene", nil)
	_ = s.SaveDocument(ctx, doc.ID, "The lighthouse beam swept the bay.")

	w := do(t, router, http.MethodGet, "/projects/novel/search?q=lighthouse", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	res := decode[map[string][]models.SearchHit](t, w)
	if len(res["results"]) != 1 || !strings.Contains(res["results"][0].Snippet, "<b>lighthouse</b>") {
		t.Errorf("results = %+v", res)
	}

	w = do(t, router, http.MethodGet, "/projects/novel/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestBackupAndReconcileEndpoints(t *testing.T) {
	s, router := testProject(t)
	doc, _ := s.CreateDocument(context.Background(), "Scene", nil)

	w := do(t, router, http.MethodPost, "/projects/novel/backups", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("backup = %d, body = %s", w.Code, w.Body.String())
	}
	info := decode[models.BackupInfo](t, w)
	if !strings.HasPrefix(info.Name, "backup_") || !strings.HasSuffix(info.Name, ".zip") {
		t.Errorf("backup name = %q", info.Name)
	}
	w = do(t, router, http.MethodGet, "/projects/novel/backups", nil)
	if list := decode[map[string][]models.BackupInfo](t, w); len(list["backups"]) != 1 {
		t.Errorf("backups = %+v", list)
	}

	_ = os.Remove(filepath.Join(s.Root(), "md", doc.ID+".md"))
	w = do(t, router, http.MethodPost, "/projects/novel/reconcile", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reconcile = %d", w.Code)
	}
	if rep := decode[map[string][]string](t, w); len(rep["rewritten"]) != 1 {
		t.Errorf("report = %v", rep)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

// testEnvWithSSE creates a router with a stub SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	// Minimal SSE handler stub: writes headers and blocks until context done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	return NewRouter(testutil.TestRegistry(t), authEnabled, token, sseHandler)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// Character image tests.

func uploadImage(t *testing.T, router http.Handler, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeCharacterImage(t *testing.T) {
	s, router := testProject(t)
	c, _ := s.CreateCharacter(context.Background(), "Ada", nil)

	w := uploadImage(t, router, "/projects/novel/characters/"+c.ID+"/image", "ada.png", []byte("fake-png-data"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[ImportImageResponse](t, w)
	if want := filepath.Join(s.Root(), "assets", "characters", c.ID, "ada.png"); resp.Path != want {
		t.Errorf("path = %q, want %q", resp.Path, want)
	}

	w = do(t, router, http.MethodGet, strings.TrimPrefix(resp.URL, "/api"), nil)
	if w.Code != http.StatusOK || w.Body.String() != "fake-png-data" {
		t.Errorf("serve = %d %q", w.Code, w.Body.String())
	}
}

func TestImportCharacterImageFromPath(t *testing.T) {
	s, router := testProject(t)
	c, _ := s.CreateCharacter(context.Background(), "Ada", nil)
	src := filepath.Join(t.TempDir(), "portrait.jpg")
	if err := os.WriteFile(src, []byte("jpg"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodPost, "/projects/novel/characters/"+c.ID+"/image", map[string]string{"source_path": src})
	if w.Code != http.StatusCreated {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/projects/novel/characters/"+c.ID+"/image", map[string]string{"source_path": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty source = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPost, "/projects/novel/characters/missing/image", map[string]string{"source_path": src})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing character = %d, want 404", w.Code)
	}
}

func TestServeCharacterImage_NotFound(t *testing.T) {
	s, router := testProject(t)
	c, _ := s.CreateCharacter(context.Background(), "Ada", nil)
	w := do(t, router, http.MethodGet, "/projects/novel/characters/"+c.ID+"/image/nope.png", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing image = %d, want 404", w.Code)
	}
}

func TestUploadCharacterImage_MissingFileField(t *testing.T) {
	s, router := testProject(t)
	c, _ := s.CreateCharacter(context.Background(), "Ada", nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/projects/novel/characters/"+c.ID+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestSafeName(t *testing.T) {
	for _, name := range []string{"", "..", "../x.png", "a/b.png", `a\b.png`} {
		if _, err := safeName(name); err == nil {
			t.Errorf("safeName(%q) accepted", name)
		}
	}
	if got, err := safeName("ada.png"); err != nil || got != "ada.png" {
		t.Errorf("safeName(ada.png) = %q, %v", got, err)
	}
}
