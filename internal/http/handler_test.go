package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"invoice-console/internal/api"
	"invoice-console/internal/repository/memory"
	"invoice-console/internal/service"
	"invoice-console/internal/session"
	"invoice-console/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Unix(1_700_000_000, 0)

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(exp)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// backend is a fake invoicing API recording every call it receives.
type backend struct {
	mu     sync.Mutex
	hits   []string
	auth   []string
	router *gin.Engine
}

func newBackend() *backend {
	b := &backend{router: gin.New()}
	b.router.Use(func(c *gin.Context) {
		b.mu.Lock()
		b.hits = append(b.hits, c.Request.Method+" "+c.Request.URL.Path)
		b.auth = append(b.auth, c.GetHeader("Authorization"))
		b.mu.Unlock()
		c.Next()
	})
	return b
}

func (b *backend) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.hits...)
}

func (b *backend) called(call string) bool {
	for _, h := range b.calls() {
		if h == call {
			return true
		}
	}
	return false
}

type fakeStorage struct {
	mu       sync.Mutex
	uploads  map[string][]byte
	deleted  []string
	presigns int
}

func (f *fakeStorage) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[key] = data
	return "s3://" + bucket + "/" + key, nil
}

func (f *fakeStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.ObjectInfo
	for k, v := range f.uploads {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (f *fakeStorage) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, prefix)
	return nil
}

func (f *fakeStorage) GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presigns++
	return "https://example.invalid/" + key, nil
}

type console struct {
	router  *gin.Engine
	store   *memory.TokenRepository
	backend *backend
}

type option func(*Config)

func newConsole(t *testing.T, token string, opts ...option) *console {
	t.Helper()
	b := newBackend()
	srv := httptest.NewServer(b.router)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewTokenRepository()
	if token != "" {
		_ = store.Set(context.Background(), token)
	}
	client := api.NewClient(srv.URL, store, api.WithLogger(logrus.NewEntry(logger)))

	cfg := Config{
		Guard:     session.NewGuard(store, session.WithClock(func() time.Time { return fixedNow }), session.WithLogger(logrus.NewEntry(logger))),
		Auth:      service.NewAuthService(client, store),
		Clients:   service.NewClientService(client),
		Invoices:  service.NewInvoiceService(client),
		Company:   service.NewCompanyService(client),
		KeyPrefix: "invoices",
		Logger:    logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	router := gin.New()
	NewHandler(cfg).RegisterRoutes(router)
	return &console{router: router, store: store, backend: b}
}

func (c *console) do(method, path string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303 (body %s)", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}

func TestGuard_AnonymousIsSentToLoginWithoutBackendCall(t *testing.T) {
	c := newConsole(t, "")
	c.backend.router.GET("/clients", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, []gin.H{}) })

	for _, path := range []string{"/", "/all-clients", "/invoice-form", "/invoice-details/1", "/register-company"} {
		assertRedirect(t, c.do(http.MethodGet, path, nil), session.LoginPath)
	}
	if calls := c.backend.calls(); len(calls) != 0 {
		t.Errorf("backend calls = %v, want none", calls)
	}
}

func TestGuard_ExpiredTokenIsCleared(t *testing.T) {
	c := newConsole(t, signToken(t, fixedNow.Add(-time.Minute)))

	assertRedirect(t, c.do(http.MethodGet, "/all-invoices", nil), session.LoginPath)
	if _, ok, _ := c.store.Get(context.Background()); ok {
		t.Error("expired token left in store")
	}
}

func TestGuard_LoginPage(t *testing.T) {
	t.Run("authenticated goes home", func(t *testing.T) {
		c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
		assertRedirect(t, c.do(http.MethodGet, "/login", nil), session.HomePath)
	})

	t.Run("expired renders after clearing", func(t *testing.T) {
		c := newConsole(t, signToken(t, fixedNow.Add(-time.Hour)))
		w := c.do(http.MethodGet, "/login", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if _, ok, _ := c.store.Get(context.Background()); ok {
			t.Error("expired token left in store")
		}
	})

	t.Run("malformed token is treated as expired", func(t *testing.T) {
		c := newConsole(t, "not-a-jwt")
		assertRedirect(t, c.do(http.MethodGet, "/", nil), session.LoginPath)
		if _, ok, _ := c.store.Get(context.Background()); ok {
			t.Error("malformed token left in store")
		}
	})
}

func TestLogin_StoresTokenAndRedirectsHome(t *testing.T) {
	c := newConsole(t, "")
	c.backend.router.POST("/login", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"token": "issued"})
	})

	w := c.do(http.MethodPost, "/login", gin.H{"email": "a@b.co", "password": "pw"})
	assertRedirect(t, w, session.HomePath)
	if got, _, _ := c.store.Get(context.Background()); got != "issued" {
		t.Errorf("token = %q", got)
	}
}

func TestLogin_RejectedShowsBackendMessage(t *testing.T) {
	c := newConsole(t, "")
	c.backend.router.POST("/login", func(ctx *gin.Context) {
		ctx.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
	})

	w := c.do(http.MethodPost, "/login", gin.H{"email": "a@b.co", "password": "pw"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode(t, w)["error"]; got != "Invalid credentials" {
		t.Errorf("error = %v", got)
	}
}

func TestLogout_ClearsToken(t *testing.T) {
	c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
	assertRedirect(t, c.do(http.MethodPost, "/logout", nil), session.LoginPath)
	if _, ok, _ := c.store.Get(context.Background()); ok {
		t.Error("token still stored after logout")
	}
}

func TestDashboard_CompanyFailureSendsToOnboarding(t *testing.T) {
	c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
	c.backend.router.GET("/company", func(ctx *gin.Context) {
		ctx.JSON(http.StatusInternalServerError, gin.H{"message": "boom"})
	})

	assertRedirect(t, c.do(http.MethodGet, "/", nil), "/register-company")
	if c.backend.called("GET /clients") {
		t.Error("dashboard lists fetched for an unregistered actor")
	}
}

func TestDashboard_MissingCompanySendsToOnboarding(t *testing.T) {
	c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
	c.backend.router.GET("/company", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, nil) })

	assertRedirect(t, c.do(http.MethodGet, "/", nil), "/register-company")
}

func TestDashboard_RendersListsIndependently(t *testing.T) {
	token := signToken(t, fixedNow.Add(time.Hour))
	c := newConsole(t, token)
	c.backend.router.GET("/company", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"companyName": "Acme"})
	})
	c.backend.router.GET("/clients", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, []gin.H{{"id": "c1", "name": "Buyer"}})
	})
	c.backend.router.GET("/user-invoices", func(ctx *gin.Context) {
		ctx.JSON(http.StatusBadGateway, gin.H{"message": "down"})
	})

	w := c.do(http.MethodGet, "/?tab=invoices", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["tab"] != "invoices" {
		t.Errorf("tab = %v", body["tab"])
	}
	clients := body["clients"].(map[string]any)
	if items := clients["items"].([]any); len(items) != 1 {
		t.Errorf("clients = %v", clients)
	}
	invoices := body["invoices"].(map[string]any)
	if invoices["message"] != noRecordsMessage || len(invoices["items"].([]any)) != 0 {
		t.Errorf("invoices = %v", invoices)
	}

	for _, a := range c.backend.auth {
		if a != "Bearer "+token {
			t.Errorf("Authorization = %q", a)
		}
	}
}

func TestAllClients_TransportFailureShowsEmptyList(t *testing.T) {
	c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
	c.backend.router.GET("/clients", func(ctx *gin.Context) {
		ctx.JSON(http.StatusInternalServerError, gin.H{})
	})

	w := c.do(http.MethodGet, "/all-clients", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	clients := decode(t, w)["clients"].(map[string]any)
	if clients["message"] != noRecordsMessage {
		t.Errorf("clients = %v", clients)
	}
}

func TestAllInvoices_ResolvesClientNames(t *testing.T) {
	c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
	c.backend.router.GET("/clients", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, []gin.H{{"id": "c1", "name": "Buyer"}})
	})
	c.backend.router.GET("/user-invoices", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, []gin.H{{
			"id": "1", "invoiceNumber": "INV-1", "clientId": "c1",
			"items": []gin.H{{"name": "Widget", "amount": 10, "quantity": 3, "total": 0}},
		}})
	})

	rows := decode(t, c.do(http.MethodGet, "/all-invoices", nil))["invoices"].(map[string]any)["items"].([]any)
	if len(rows) != 1 {
		t.Fatalf("rows = %v", rows)
	}
	row := rows[0].(map[string]any)
	if row["clientName"] != "Buyer" || row["total"] != float64(30) {
		t.Errorf("row = %v", row)
	}
}

func TestCreateClient_ValidationErrors(t *testing.T) {
	c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))

	w := c.do(http.MethodPost, "/add-client", gin.H{"name": "Buyer", "email": "nope"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	errs := decode(t, w)["errors"].(map[string]any)
	if errs["email"] != "Invalid email pattern" {
		t.Errorf("errors = %v", errs)
	}
	if c.backend.called("POST /add-client") {
		t.Error("invalid client reached the backend")
	}
}

func TestDeleteClient_BackendMessage(t *testing.T) {
	c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
	c.backend.router.DELETE("/delete-client/:id", func(ctx *gin.Context) {
		ctx.JSON(http.StatusConflict, gin.H{"message": "Client has invoices"})
	})

	w := c.do(http.MethodDelete, "/edit-client/c1", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
	if got := decode(t, w)["error"]; got != "Client has invoices" {
		t.Errorf("error = %v", got)
	}
}

func validDraft() gin.H {
	return gin.H{
		"invoiceNumber":  "INV-7",
		"invoiceDate":    "2024-05-01T00:00:00Z",
		"invoiceDueDate": "2024-06-01T00:00:00Z",
		"clientId":       "c1",
		"items":          []gin.H{{"name": "Widget", "amount": 10, "quantity": 2}},
	}
}

func TestCreateInvoice_EmptyItemsRejected(t *testing.T) {
	c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))

	draft := validDraft()
	draft["items"] = []gin.H{}
	w := c.do(http.MethodPost, "/invoice-form", draft)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	if errs := decode(t, w)["errors"].(map[string]any); errs["items"] == nil {
		t.Errorf("errors = %v", errs)
	}
	if c.backend.called("POST /add-invoice") {
		t.Error("empty invoice reached the backend")
	}
}

func TestCreateInvoice_SubmitsRecomputedTotals(t *testing.T) {
	c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
	var got map[string]any
	c.backend.router.POST("/add-invoice", func(ctx *gin.Context) {
		_ = ctx.ShouldBindJSON(&got)
		ctx.JSON(http.StatusCreated, gin.H{})
	})

	assertRedirect(t, c.do(http.MethodPost, "/invoice-form", validDraft()), "/all-invoices")
	items := got["items"].([]any)
	if total := items[0].(map[string]any)["total"]; total != float64(20) {
		t.Errorf("submitted total = %v", total)
	}
}

func TestItemAction(t *testing.T) {
	c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
	items := []gin.H{{"name": "Widget", "amount": 10, "quantity": 2, "total": 20}}

	w := c.do(http.MethodPost, "/invoice-form/items", gin.H{
		"items":  items,
		"action": gin.H{"type": "update", "index": 0, "field": "quantity", "value": 3},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["total"] != float64(30) || body["canAppend"] != true {
		t.Errorf("body = %v", body)
	}

	w = c.do(http.MethodPost, "/invoice-form/items", gin.H{
		"items":  []gin.H{{"name": "", "amount": 0, "quantity": 0}},
		"action": gin.H{"type": "append"},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("append on incomplete item status = %d", w.Code)
	}
	if n := len(decode(t, w)["items"].([]any)); n != 1 {
		t.Errorf("items after rejected append = %d", n)
	}
}

func invoiceBackend(c *console) {
	c.backend.router.GET("/invoice/:id", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"id": ctx.Param("id"), "invoiceNumber": "INV-7", "clientId": "c1",
			"items": []gin.H{{"name": "Widget", "amount": 10, "quantity": 2}},
		})
	})
	c.backend.router.GET("/client/:id", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"id": "c1", "name": "Buyer"})
	})
	c.backend.router.GET("/company", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"companyName": "Acme"})
	})
}

func TestInvoiceDetails(t *testing.T) {
	c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
	invoiceBackend(c)

	body := decode(t, c.do(http.MethodGet, "/invoice-details/7", nil))
	if body["total"] != float64(20) {
		t.Errorf("total = %v", body["total"])
	}
	if body["client"].(map[string]any)["name"] != "Buyer" {
		t.Errorf("client = %v", body["client"])
	}

	w := c.do(http.MethodGet, "/invoice-details/7/pdf", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf status = %d, type %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Error("response is not a PDF")
	}
}

func TestArchive(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
		if w := c.do(http.MethodPost, "/invoice-details/7/archive", nil); w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("uploads under the invoice prefix", func(t *testing.T) {
		fs := &fakeStorage{}
		c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)), func(cfg *Config) {
			cfg.Storage = fs
			cfg.Bucket = "archive"
		})
		invoiceBackend(c)

		w := c.do(http.MethodPost, "/invoice-details/7/archive", nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		body := decode(t, w)
		key, _ := body["key"].(string)
		if !strings.HasPrefix(key, "invoices/7/") || body["url"] == nil {
			t.Errorf("body = %v", body)
		}
		if !bytes.HasPrefix(fs.uploads[key], []byte("%PDF")) {
			t.Error("uploaded object is not a PDF")
		}

		list := decode(t, c.do(http.MethodGet, "/invoice-details/7/archive", nil))["archives"].(map[string]any)
		if len(list["items"].([]any)) != 1 {
			t.Errorf("archives = %v", list)
		}
	})
}

func TestDeleteInvoice_RemovesArchives(t *testing.T) {
	fs := &fakeStorage{}
	c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)), func(cfg *Config) {
		cfg.Storage = fs
		cfg.Bucket = "archive"
	})
	c.backend.router.DELETE("/delete-invoice/:id", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{})
	})

	if w := c.do(http.MethodDelete, "/invoice-details/7", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(fs.deleted) != 1 || fs.deleted[0] != "invoices/7/" {
		t.Errorf("deleted prefixes = %v", fs.deleted)
	}
}

func TestRegisterCompany(t *testing.T) {
	t.Run("existing profile goes home", func(t *testing.T) {
		c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
		c.backend.router.GET("/company", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"companyName": "Acme"})
		})
		assertRedirect(t, c.do(http.MethodGet, "/register-company", nil), session.HomePath)
	})

	t.Run("submit registers and goes home", func(t *testing.T) {
		c := newConsole(t, signToken(t, fixedNow.Add(time.Hour)))
		c.backend.router.POST("/register-company", func(ctx *gin.Context) {
			ctx.JSON(http.StatusCreated, gin.H{})
		})
		w := c.do(http.MethodPost, "/register-company", gin.H{
			"companyName":      "Acme",
			"companyEmail":     "hello@acme.example.com",
			"companyContactNo": "9876543210",
			"address":          "Road 1",
			"gstNumber":        "G1",
		})
		assertRedirect(t, w, session.HomePath)
	})
}
