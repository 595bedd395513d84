package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imperialbin/imperial/config"
	"github.com/imperialbin/imperial/models"
	"github.com/imperialbin/imperial/services"
	"github.com/imperialbin/imperial/storage"
	"github.com/imperialbin/imperial/users"
)

// memStore is an in-memory DocumentStore for handler tests
type memStore struct {
	mu   sync.Mutex
	docs map[string]*models.Document
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]*models.Document)}
}

func (m *memStore) Insert(doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.docs[doc.Slug]; ok && !existing.IsExpired() {
		return storage.ErrDuplicateSlug
	}
	copied := *doc
	m.docs[doc.Slug] = &copied
	return nil
}

func (m *memStore) Get(slug string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[slug]
	if !ok || doc.IsExpired() {
		return nil, storage.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *memStore) ListByCreator(creator string) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var owned []*models.Document
	for _, doc := range m.docs {
		if doc.Creator == creator {
			copied := *doc
			owned = append(owned, &copied)
		}
	}
	return owned, nil
}

func (m *memStore) UpdateContent(slug, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[slug]
	if !ok {
		return storage.ErrNotFound
	}
	doc.Content = content
	return nil
}

func (m *memStore) Delete(slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[slug]; !ok {
		return storage.ErrNotFound
	}
	delete(m.docs, slug)
	return nil
}

func (m *memStore) DeleteByCreator(creator string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for slug, doc := range m.docs {
		if doc.Creator == creator {
			delete(m.docs, slug)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memStore) Close() error { return nil }

// memUsers is an in-memory token directory
type memUsers struct {
	byToken map[string]*models.User
}

func (m *memUsers) FindByToken(token string) (*models.User, error) {
	user, ok := m.byToken[token]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (m *memUsers) IncrementDocumentCount(string) error { return nil }
func (m *memUsers) Close() error                        { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		URL:               "https://imperialb.in",
		DefaultExpiryDays: 5,
		MaxExpiryDays:     31,
	}
	store := newMemStore()
	userStore := &memUsers{byToken: map[string]*models.User{
		"token-user1": {ID: "user1", APIToken: "token-user1"},
		"token-plus":  {ID: "user2", APIToken: "token-plus", MemberPlus: true},
	}}

	svc := services.NewDocumentService(store, userStore, nil, nil, cfg)
	docHandler := NewDocumentHandler(svc, userStore, cfg)
	systemHandler := NewSystemHandler()

	r := gin.New()
	r.POST("/api/document", docHandler.Create)
	r.GET("/api/document/:slug", docHandler.Get)
	r.PATCH("/api/document", docHandler.Edit)
	r.DELETE("/api/document/:slug", docHandler.Delete)
	r.DELETE("/api/purgeDocuments", docHandler.Purge)
	r.GET("/api/checkApiToken/:apiToken", docHandler.CheckToken)
	r.GET("/api/getShareXConfig/:apiToken", docHandler.GetShareXConfig)
	r.GET("/r/:slug", docHandler.Raw)
	r.GET("/health", systemHandler.Health)
	return r, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	r.ServeHTTP(w, req)

	var parsed map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return w, parsed
}

func TestCreate_Guest(t *testing.T) {
	r, store := newTestRouter(t)

	w, resp := doJSON(t, r, "POST", "/api/document", "", `{"code":"hello world"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
	}
	slug, _ := resp["documentId"].(string)
	if len(slug) != 8 {
		t.Errorf("documentId length = %d, want 8", len(slug))
	}
	if resp["rawLink"] != "https://imperialb.in/r/"+slug {
		t.Errorf("rawLink = %v", resp["rawLink"])
	}
	if resp["formattedLink"] != "https://imperialb.in/p/"+slug {
		t.Errorf("formattedLink = %v", resp["formattedLink"])
	}

	doc, err := store.Get(slug)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Creator != models.AnonymousCreator {
		t.Errorf("guest document creator = %q, want anonymous", doc.Creator)
	}
}

func TestCreate_GuestIgnoresSettings(t *testing.T) {
	r, store := newTestRouter(t)

	// Guests get a plain default document no matter what they ask for
	w, resp := doJSON(t, r, "POST", "/api/document", "",
		`{"code":"hi","longerUrls":true,"encrypted":true,"password":"pw","imageEmbed":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	slug, _ := resp["documentId"].(string)
	if len(slug) != 8 {
		t.Errorf("guest slug length = %d, want 8", len(slug))
	}
	doc, err := store.Get(slug)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Encrypted || doc.ImageEmbed {
		t.Error("guest settings should be ignored")
	}
}

func TestCreate_MissingContent(t *testing.T) {
	r, _ := newTestRouter(t)
	w, resp := doJSON(t, r, "POST", "/api/document", "", `{"code":""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if resp["success"] != false {
		t.Errorf("success = %v, want false", resp["success"])
	}
}

func TestCreate_Authenticated(t *testing.T) {
	r, store := newTestRouter(t)

	w, resp := doJSON(t, r, "POST", "/api/document", "token-user1",
		`{"code":"authed","longerUrls":true,"expiration":9000}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	slug, _ := resp["documentId"].(string)
	if len(slug) != 26 {
		t.Errorf("slug length = %d, want 26 for longerUrls", len(slug))
	}

	doc, err := store.Get(slug)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Creator != "user1" {
		t.Errorf("creator = %q, want user1", doc.Creator)
	}
	if got := doc.ExpiresAt.Sub(doc.CreatedAt); got != 31*24*time.Hour {
		t.Errorf("expiry window = %v, want clamped 31 days", got)
	}
	if doc.Quality != qualityDefault {
		t.Errorf("quality = %d, want %d", doc.Quality, qualityDefault)
	}
}

func TestCreate_MemberPlusQuality(t *testing.T) {
	r, store := newTestRouter(t)

	_, resp := doJSON(t, r, "POST", "/api/document", "token-plus", `{"code":"plus"}`)
	slug, _ := resp["documentId"].(string)
	doc, err := store.Get(slug)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Quality != qualityMemberPlus {
		t.Errorf("quality = %d, want %d", doc.Quality, qualityMemberPlus)
	}
}

func TestEncryptedFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	w, resp := doJSON(t, r, "POST", "/api/document", "token-user1", `{"code":"secret stuff","encrypted":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	slug, _ := resp["documentId"].(string)
	password, _ := resp["password"].(string)
	if len(password) != 12 {
		t.Fatalf("generated password length = %d, want 12", len(password))
	}

	// No passphrase: prompt for one
	w, _ = doJSON(t, r, "GET", "/api/document/"+slug, "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("read without password status = %d, want 401", w.Code)
	}

	// Wrong passphrase: rejected, and never the ciphertext
	w, resp = doJSON(t, r, "GET", "/api/document/"+slug+"?password=wrong", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("read with wrong password status = %d, want 401", w.Code)
	}
	if msg, _ := resp["message"].(string); !strings.Contains(msg, "Incorrect password") {
		t.Errorf("message = %q, want incorrect password message", msg)
	}

	// Correct passphrase round-trips
	w, resp = doJSON(t, r, "GET", "/api/document/"+slug+"?password="+password, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("read with correct password status = %d", w.Code)
	}
	if resp["document"] != "secret stuff" {
		t.Errorf("document = %v, want original content", resp["document"])
	}
}

func TestGet_NotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w, _ := doJSON(t, r, "GET", "/api/document/missing1", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	// Malformed slugs get the same not-found answer
	w, _ = doJSON(t, r, "GET", "/api/document/bad!slug", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("invalid slug status = %d, want 404", w.Code)
	}
}

func TestEdit(t *testing.T) {
	r, _ := newTestRouter(t)

	_, resp := doJSON(t, r, "POST", "/api/document", "token-user1", `{"code":"v1"}`)
	slug, _ := resp["documentId"].(string)

	// No token
	w, _ := doJSON(t, r, "PATCH", "/api/document", "", fmt.Sprintf(`{"document":%q,"newCode":"v2"}`, slug))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("edit without token status = %d, want 401", w.Code)
	}

	// Wrong user
	w, _ = doJSON(t, r, "PATCH", "/api/document", "token-plus", fmt.Sprintf(`{"document":%q,"newCode":"v2"}`, slug))
	if w.Code != http.StatusForbidden {
		t.Errorf("edit by stranger status = %d, want 403", w.Code)
	}

	// Owner
	w, resp = doJSON(t, r, "PATCH", "/api/document", "token-user1", fmt.Sprintf(`{"document":%q,"newCode":"v2"}`, slug))
	if w.Code != http.StatusOK {
		t.Fatalf("edit status = %d (%s)", w.Code, w.Body.String())
	}
	if resp["documentId"] != slug {
		t.Errorf("documentId = %v, want %q", resp["documentId"], slug)
	}

	_, resp = doJSON(t, r, "GET", "/api/document/"+slug, "", "")
	if resp["document"] != "v2" {
		t.Errorf("document after edit = %v, want v2", resp["document"])
	}
}

func TestEdit_EncryptedRejected(t *testing.T) {
	r, _ := newTestRouter(t)

	_, resp := doJSON(t, r, "POST", "/api/document", "token-user1", `{"code":"secret","encrypted":true,"password":"pw"}`)
	slug, _ := resp["documentId"].(string)

	// Even the owner is rejected
	w, resp := doJSON(t, r, "PATCH", "/api/document", "token-user1", fmt.Sprintf(`{"document":%q,"newCode":"new"}`, slug))
	if w.Code != http.StatusForbidden {
		t.Errorf("edit encrypted status = %d, want 403", w.Code)
	}
	if msg, _ := resp["message"].(string); !strings.Contains(msg, "Encrypted") {
		t.Errorf("message = %q, want encrypted-immutable message", msg)
	}
}

func TestDeleteFlow(t *testing.T) {
	r, _ := newTestRouter(t)

	_, resp := doJSON(t, r, "POST", "/api/document", "token-user1", `{"code":"hello","expiration":5}`)
	slug, _ := resp["documentId"].(string)

	// Read back
	_, resp = doJSON(t, r, "GET", "/api/document/"+slug, "", "")
	if resp["document"] != "hello" {
		t.Fatalf("document = %v, want hello", resp["document"])
	}

	// Stranger cannot delete
	w, _ := doJSON(t, r, "DELETE", "/api/document/"+slug, "token-plus", "")
	if w.Code != http.StatusForbidden {
		t.Errorf("delete by stranger status = %d, want 403", w.Code)
	}

	// Owner deletes
	w, _ = doJSON(t, r, "DELETE", "/api/document/"+slug, "token-user1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	// Subsequent read is a 404
	w, _ = doJSON(t, r, "GET", "/api/document/"+slug, "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("read after delete status = %d, want 404", w.Code)
	}
}

func TestPurge(t *testing.T) {
	r, _ := newTestRouter(t)

	// Nothing to purge yet
	w, _ := doJSON(t, r, "DELETE", "/api/purgeDocuments", "token-user1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("purge with no documents status = %d, want 404", w.Code)
	}

	var slugs []string
	for i := 0; i < 3; i++ {
		_, resp := doJSON(t, r, "POST", "/api/document", "token-user1", `{"code":"doc"}`)
		slug, _ := resp["documentId"].(string)
		slugs = append(slugs, slug)
	}

	w, resp := doJSON(t, r, "DELETE", "/api/purgeDocuments", "token-user1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("purge status = %d (%s)", w.Code, w.Body.String())
	}
	if n, _ := resp["numberDeleted"].(float64); int(n) != 3 {
		t.Errorf("numberDeleted = %v, want 3", resp["numberDeleted"])
	}
	for _, slug := range slugs {
		w, _ := doJSON(t, r, "GET", "/api/document/"+slug, "", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("read %s after purge status = %d, want 404", slug, w.Code)
		}
	}
}

func TestCheckToken(t *testing.T) {
	r, _ := newTestRouter(t)

	_, resp := doJSON(t, r, "GET", "/api/checkApiToken/token-user1", "", "")
	if resp["success"] != true {
		t.Errorf("valid token success = %v, want true", resp["success"])
	}

	_, resp = doJSON(t, r, "GET", "/api/checkApiToken/nope", "", "")
	if resp["success"] != false {
		t.Errorf("invalid token success = %v, want false", resp["success"])
	}
}

func TestGetShareXConfig(t *testing.T) {
	r, _ := newTestRouter(t)

	w, resp := doJSON(t, r, "GET", "/api/getShareXConfig/token-user1", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "imperial.sxcu") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if resp["RequestURL"] != "https://imperialb.in/api/document" {
		t.Errorf("RequestURL = %v", resp["RequestURL"])
	}
	headers, _ := resp["Headers"].(map[string]any)
	if headers["Authorization"] != "token-user1" {
		t.Errorf("Headers.Authorization = %v", headers["Authorization"])
	}
}

func TestRaw(t *testing.T) {
	r, _ := newTestRouter(t)

	_, resp := doJSON(t, r, "POST", "/api/document", "", `{"code":"plain text body"}`)
	slug, _ := resp["documentId"].(string)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/r/"+slug, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if w.Body.String() != "plain text body" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w, resp := doJSON(t, r, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v, want ok", resp["status"])
	}
}
