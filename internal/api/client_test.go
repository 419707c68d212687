package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"docvault/internal/domain"
	"docvault/internal/domain/models"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// fakeAPI is an in-process stand-in for the archive server, counting hits
// per route so cache behavior is observable.
type fakeAPI struct {
	router      *chi.Mux
	folderHits  atomic.Int32
	docHits     atomic.Int32
	bulkHits    atomic.Int32
	lastAuth    atomic.Value
	lastReqID   atomic.Value
	lastDocsURL atomic.Value
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{router: chi.NewRouter()}

	f.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.lastAuth.Store(r.Header.Get("Authorization"))
			f.lastReqID.Store(r.Header.Get("X-Request-ID"))
			next.ServeHTTP(w, r)
		})
	})

	f.router.Get("/folders", func(w http.ResponseWriter, r *http.Request) {
		f.folderHits.Add(1)
		writeJSON(w, []models.Folder{
			{ID: 1, Name: "Contracts", Path: "/Contracts", Type: models.FolderTypeRegular},
			{ID: 2, Name: "Invoices", Path: "/Invoices", Type: models.FolderTypeRegular},
		})
	})
	f.router.Get("/documents", func(w http.ResponseWriter, r *http.Request) {
		f.docHits.Add(1)
		f.lastDocsURL.Store(r.URL.String())
		writeJSON(w, []models.Document{{ID: 10, Title: "NDA", Status: models.StatusActive}})
	})
	f.router.Post("/documents/folders/bulk-counts", func(w http.ResponseWriter, r *http.Request) {
		f.bulkHits.Add(1)
		writeJSON(w, map[string]int{"1": 4, "2": 0})
	})
	f.router.Post("/folders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"message": "Folder created successfully",
			"folder":  models.Folder{ID: 3, Name: "Reports", Path: "/Reports", Type: models.FolderTypeRegular},
		})
	})

	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.Handler, ttl time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "", ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCachedReadsHitNetworkOnce(t *testing.T) {
	fake := newFakeAPI()
	client := newTestClient(t, fake.router, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		folders, err := client.ListAllFolders(ctx)
		if err != nil {
			t.Fatalf("ListAllFolders: %v", err)
		}
		if len(folders) != 2 {
			t.Fatalf("got %d folders, want 2", len(folders))
		}
	}

	if got := fake.folderHits.Load(); got != 1 {
		t.Errorf("folder endpoint hit %d times, want 1 (cached)", got)
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	fake := newFakeAPI()
	client := newTestClient(t, fake.router, 30*time.Millisecond)
	ctx := context.Background()

	if _, err := client.ListAllFolders(ctx); err != nil {
		t.Fatalf("first list: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := client.ListAllFolders(ctx); err != nil {
		t.Fatalf("second list: %v", err)
	}

	if got := fake.folderHits.Load(); got != 2 {
		t.Errorf("folder endpoint hit %d times, want 2 after TTL expiry", got)
	}
}

func TestMutationInvalidatesCache(t *testing.T) {
	fake := newFakeAPI()
	client := newTestClient(t, fake.router, time.Minute)
	ctx := context.Background()

	if _, err := client.ListAllFolders(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	_, err := client.CreateFolder(ctx, CreateFolderRequest{
		Name: "Reports",
		Path: "/Reports",
		Type: models.FolderTypeRegular,
	})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if _, err := client.ListAllFolders(ctx); err != nil {
		t.Fatalf("list after create: %v", err)
	}

	if got := fake.folderHits.Load(); got != 2 {
		t.Errorf("folder endpoint hit %d times, want 2 (cache invalidated by mutation)", got)
	}
}

func TestBulkCountsDoNotInvalidateCache(t *testing.T) {
	fake := newFakeAPI()
	client := newTestClient(t, fake.router, time.Minute)
	ctx := context.Background()

	if _, err := client.ListAllFolders(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}

	counts, err := client.BulkFolderCounts(ctx, []int{1, 2})
	if err != nil {
		t.Fatalf("BulkFolderCounts: %v", err)
	}
	if counts[1] != 4 || counts[2] != 0 {
		t.Errorf("counts: %v", counts)
	}

	if _, err := client.ListAllFolders(ctx); err != nil {
		t.Fatalf("list after bulk: %v", err)
	}
	if got := fake.folderHits.Load(); got != 1 {
		t.Errorf("folder endpoint hit %d times, want 1 (bulk counts must not invalidate)", got)
	}
	// And the POST itself is never served from cache
	if _, err := client.BulkFolderCounts(ctx, []int{1, 2}); err != nil {
		t.Fatalf("second bulk: %v", err)
	}
	if got := fake.bulkHits.Load(); got != 2 {
		t.Errorf("bulk endpoint hit %d times, want 2 (uncached)", got)
	}
}

func TestDistinctQueriesGetDistinctCacheEntries(t *testing.T) {
	fake := newFakeAPI()
	client := newTestClient(t, fake.router, time.Minute)
	ctx := context.Background()

	year := 2024
	if _, err := client.ListDocuments(ctx, models.DocumentQuery{Year: &year}); err != nil {
		t.Fatalf("year query: %v", err)
	}
	if _, err := client.ListDocuments(ctx, models.DocumentQuery{Search: "nda"}); err != nil {
		t.Fatalf("search query: %v", err)
	}
	if _, err := client.ListDocuments(ctx, models.DocumentQuery{Year: &year}); err != nil {
		t.Fatalf("repeated year query: %v", err)
	}

	if got := fake.docHits.Load(); got != 2 {
		t.Errorf("documents endpoint hit %d times, want 2 (one per distinct query)", got)
	}
}

func TestDocumentQueryParams(t *testing.T) {
	fake := newFakeAPI()
	client := newTestClient(t, fake.router, time.Minute)

	folderID, year := 7, 2023
	_, err := client.ListDocuments(context.Background(), models.DocumentQuery{
		FolderID: &folderID,
		Search:   "audit",
		Year:     &year,
		Status:   models.StatusArchived,
	})
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}

	got, _ := fake.lastDocsURL.Load().(string)
	want := "/documents?folder_id=7&search=audit&status=archived&year=2023"
	if got != want {
		t.Errorf("request URL: got %q, want %q", got, want)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Unauthenticated."}`, domain.ErrAuthenticationRequired},
		{"not found", http.StatusNotFound, `{"message":"Folder not found"}`, domain.ErrNotFound},
		{"validation", http.StatusUnprocessableEntity, `{"message":"The folder name field is required."}`, domain.ErrValidation},
		{"bad request", http.StatusBadRequest, `{"error":"bad input"}`, domain.ErrValidation},
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, domain.ErrServer},
		{"non-json error body", http.StatusBadGateway, `<html>gateway</html>`, domain.ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			client := newTestClient(t, handler, time.Minute)

			_, err := client.GetFolder(context.Background(), 1)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("got %v (%T), want %v", err, err, tt.sentinel)
			}
		})
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := New(srv.URL, "", time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := client.ListAllFolders(context.Background())
	if !errors.Is(err, domain.ErrNetworkUnavailable) {
		t.Fatalf("got %v, want network error", err)
	}
}

func TestCancelledContextIsNotANetworkError(t *testing.T) {
	blocked := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	})
	client := newTestClient(t, handler, time.Minute)
	t.Cleanup(func() { close(blocked) })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.ListAllFolders(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if errors.Is(err, domain.ErrNetworkUnavailable) {
		t.Error("cancellation must not be reported as a network fault")
	}
}

func TestExpiredTokenFailsFast(t *testing.T) {
	var hits atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, []models.Folder{})
	})
	client := newTestClient(t, handler, time.Minute)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "17",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	client.SetToken(signed)

	_, err = client.ListAllFolders(context.Background())
	if !errors.Is(err, domain.ErrAuthenticationRequired) {
		t.Fatalf("got %v, want authentication error", err)
	}
	if hits.Load() != 0 {
		t.Error("expired token should not reach the server")
	}
}

func TestBearerTokenAndRequestIDHeaders(t *testing.T) {
	fake := newFakeAPI()
	client := newTestClient(t, fake.router, time.Minute)

	valid := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "17",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := valid.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	client.SetToken(signed)

	if _, err := client.ListAllFolders(context.Background()); err != nil {
		t.Fatalf("ListAllFolders: %v", err)
	}

	if got, _ := fake.lastAuth.Load().(string); got != "Bearer "+signed {
		t.Errorf("Authorization header: %q", got)
	}
	if got, _ := fake.lastReqID.Load().(string); got == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestSetTokenClearsCache(t *testing.T) {
	fake := newFakeAPI()
	client := newTestClient(t, fake.router, time.Minute)
	ctx := context.Background()

	if _, err := client.ListAllFolders(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	valid := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, _ := valid.SignedString([]byte("other-user"))
	client.SetToken(signed)

	if _, err := client.ListAllFolders(ctx); err != nil {
		t.Fatalf("list after token change: %v", err)
	}
	if got := fake.folderHits.Load(); got != 2 {
		t.Errorf("folder endpoint hit %d times, want 2 (cache cleared on credential change)", got)
	}
}

func TestListFoldersScopesByParent(t *testing.T) {
	two := 2
	router := chi.NewRouter()
	router.Get("/folders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []models.Folder{
			{ID: 1, Name: "Root A"},
			{ID: 2, Name: "Root B"},
			{ID: 21, Name: "Child", ParentID: &two},
		})
	})
	client := newTestClient(t, router, time.Minute)
	ctx := context.Background()

	roots, err := client.ListFolders(ctx, nil)
	if err != nil {
		t.Fatalf("root listing: %v", err)
	}
	if len(roots) != 2 {
		t.Errorf("got %d roots, want 2", len(roots))
	}

	children, err := client.ListFolders(ctx, &two)
	if err != nil {
		t.Fatalf("child listing: %v", err)
	}
	if len(children) != 1 || children[0].ID != 21 {
		t.Errorf("children of 2: %+v", children)
	}
}

func TestCreateFolderValidation(t *testing.T) {
	var hits atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	client := newTestClient(t, handler, time.Minute)

	tests := []struct {
		name string
		req  CreateFolderRequest
	}{
		{"empty name", CreateFolderRequest{Path: "/x", Type: models.FolderTypeRegular}},
		{"slash in name", CreateFolderRequest{Name: "a/b", Path: "/x", Type: models.FolderTypeRegular}},
		{"unknown type", CreateFolderRequest{Name: "ok", Path: "/x", Type: "bogus"}},
		{"missing path", CreateFolderRequest{Name: "ok", Type: models.FolderTypeRegular}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.CreateFolder(context.Background(), tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
	if hits.Load() != 0 {
		t.Error("invalid requests should never reach the server")
	}
}

func TestUploadFile(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/upload", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("multipart file field: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()
		if header.Filename != "scan.pdf" {
			t.Errorf("filename: %q", header.Filename)
		}
		writeJSON(w, map[string]any{
			"success":  true,
			"document": map[string]int{"id": 55},
		})
	})
	client := newTestClient(t, router, time.Minute)

	id, err := client.UploadFile(context.Background(), "scan.pdf", bytes.NewReader([]byte("%PDF-1.4")))
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if id != 55 {
		t.Errorf("document ID: got %d, want 55", id)
	}
}

func TestUploadFileWithoutDocumentID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"success": true})
	})
	client := newTestClient(t, handler, time.Minute)

	_, err := client.UploadFile(context.Background(), "scan.pdf", bytes.NewReader([]byte("data")))
	if err == nil {
		t.Fatal("missing document ID should be an error")
	}
}
