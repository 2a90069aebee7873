package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/api/http/handlers"
	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	"github.com/spec-kit/ticket-tracker/internal/service"
)

type memTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]domain.Ticket
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("t%03d", r.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *memTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		out = append(out, ticket)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]domain.User
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = fmt.Sprintf("u%03d", r.seq)
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memResetRepo struct {
	mu     sync.Mutex
	tokens map[string]repository.PasswordResetToken
}

func (r *memResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = token.Token
	token.CreatedAt = time.Now()
	r.tokens[token.Token] = *token
	return nil
}

func (r *memResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := token
	return &copied, nil
}

func (r *memResetRepo) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	token.UsedAt = &now
	r.tokens[id] = token
	return nil
}

type testEnv struct {
	app           *fiber.App
	customerToken string
	otherToken    string
	agentToken    string
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithUploadLimit(t, 1024)
}

func newTestEnvWithUploadLimit(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()

	users := &memUserRepo{users: make(map[string]domain.User)}
	tickets := &memTicketRepo{tickets: make(map[string]domain.Ticket)}
	resets := &memResetRepo{tokens: make(map[string]repository.PasswordResetToken)}

	var cfg config.Config
	cfg.Auth = config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
	}

	revoked := auth.NewRevocationStore(nil)
	authSvc := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: resets,
		RevocationStore:   revoked,
	})
	ticketSvc := service.NewTicketService(service.TicketDependencies{TicketRepo: tickets})
	attachSvc := service.NewAttachmentService(config.AttachmentConfig{
		Dir:          t.TempDir(),
		PublicBase:   "/uploads",
		MaxSizeBytes: maxUpload,
	})

	seed := func(name, email string, role domain.Role) string {
		hash, err := auth.HashPassword("password", 4)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		user := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: role}
		if err := users.Create(context.Background(), user); err != nil {
			t.Fatalf("seed user: %v", err)
		}
		token, _, err := authSvc.TokenManager().GenerateToken(user)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		return token
	}

	// Mirrors main: body limit clears the attachment cap plus multipart framing.
	app := fiber.New(fiber.Config{BodyLimit: int(maxUpload) + 1<<20})
	RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("ticket-tracker", "test", nil, nil, nil),
		Users:          handlers.NewUsersHandler(authSvc),
		Tickets:        handlers.NewTicketsHandler(ticketSvc, attachSvc),
		AuthMiddleware: auth.NewAuthMiddleware(authSvc.TokenManager(), users, revoked),
	})

	return &testEnv{
		app:           app,
		customerToken: seed("Alice", "alice@example.com", domain.RoleCustomer),
		otherToken:    seed("Bob", "bob@example.com", domain.RoleCustomer),
		agentToken:    seed("Eve", "eve@example.com", domain.RoleAgent),
	}
}

func (e *testEnv) do(t *testing.T, method, target, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in %v", body)
	}
	code, _ := errObj["code"].(string)
	return code
}

func createTicketBody() map[string]any {
	return map[string]any{
		"title":                  "VPN drops every hour",
		"description":            "Connection resets on the hour, every hour",
		"priority":               "medium",
		"category":               "network",
		"departmentAffected":     "Sales",
		"contactEmail":           "alice@example.com",
		"contactPhone":           "+1-555-0100",
		"preferredContact":       "email",
		"expectedResolutionDate": time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02"),
	}
}

func TestTicketRoutes(t *testing.T) {
	env := newTestEnv(t)

	t.Run("requires authentication", func(t *testing.T) {
		resp, body := env.do(t, "POST", "/tickets", "", createTicketBody())
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if code := errorCode(t, body); code != "UNAUTHORIZED" {
			t.Fatalf("code = %s", code)
		}
	})

	var ticketID string

	t.Run("customer creates a ticket", func(t *testing.T) {
		resp, body := env.do(t, "POST", "/tickets", env.customerToken, createTicketBody())
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, body %v", resp.StatusCode, body)
		}
		data := body["data"].(map[string]any)
		if data["status"] != "new" {
			t.Fatalf("status forced to new, got %v", data["status"])
		}
		ticketID = data["id"].(string)
	})

	t.Run("validation failure names the field", func(t *testing.T) {
		payload := createTicketBody()
		delete(payload, "contactEmail")
		resp, body := env.do(t, "POST", "/tickets", env.customerToken, payload)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if code := errorCode(t, body); code != "VALIDATION_FAILED" {
			t.Fatalf("code = %s", code)
		}
		details := body["error"].(map[string]any)["details"].(map[string]any)
		if details["field"] != "contactEmail" {
			t.Fatalf("details = %v", details)
		}
	})

	t.Run("customer cannot change status", func(t *testing.T) {
		resp, body := env.do(t, "PATCH", "/tickets/"+ticketID, env.customerToken, map[string]any{"status": "in_progress"})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("status = %d, body %v", resp.StatusCode, body)
		}
		if code := errorCode(t, body); code != "PERMISSION_DENIED" {
			t.Fatalf("code = %s", code)
		}
	})

	t.Run("agent moves the ticket forward", func(t *testing.T) {
		resp, body := env.do(t, "PATCH", "/tickets/"+ticketID, env.agentToken, map[string]any{"status": "in_progress"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body %v", resp.StatusCode, body)
		}
		data := body["data"].(map[string]any)
		if data["status"] != "in_progress" {
			t.Fatalf("status = %v", data["status"])
		}
	})

	t.Run("illegal transition is a conflict", func(t *testing.T) {
		resp, body := env.do(t, "PATCH", "/tickets/"+ticketID, env.agentToken, map[string]any{"status": "new"})
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("status = %d, body %v", resp.StatusCode, body)
		}
		if code := errorCode(t, body); code != "INVALID_TRANSITION" {
			t.Fatalf("code = %s", code)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		resp, body := env.do(t, "PATCH", "/tickets/"+ticketID, env.agentToken, map[string]any{"favouriteColor": "red"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if code := errorCode(t, body); code != "UNKNOWN_FIELD" {
			t.Fatalf("code = %s", code)
		}
	})

	t.Run("other customers cannot see the ticket", func(t *testing.T) {
		resp, body := env.do(t, "GET", "/tickets/"+ticketID, env.otherToken, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, body %v", resp.StatusCode, body)
		}

		resp, listBody := env.do(t, "GET", "/tickets", env.otherToken, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("list status = %d", resp.StatusCode)
		}
		if items := listBody["data"].([]any); len(items) != 0 {
			t.Fatalf("foreign tickets leaked: %v", items)
		}
	})

	t.Run("agent sees the full list", func(t *testing.T) {
		resp, body := env.do(t, "GET", "/tickets", env.agentToken, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if items := body["data"].([]any); len(items) != 1 {
			t.Fatalf("expected 1 ticket, got %d", len(items))
		}
	})

	t.Run("agent cannot delete", func(t *testing.T) {
		resp, body := env.do(t, "DELETE", "/tickets/"+ticketID, env.agentToken, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("status = %d, body %v", resp.StatusCode, body)
		}
	})

	t.Run("closed ticket refuses edits", func(t *testing.T) {
		if resp, body := env.do(t, "PATCH", "/tickets/"+ticketID, env.agentToken, map[string]any{"status": "closed"}); resp.StatusCode != http.StatusOK {
			t.Fatalf("close: status = %d, body %v", resp.StatusCode, body)
		}
		resp, body := env.do(t, "PATCH", "/tickets/"+ticketID, env.agentToken, map[string]any{"title": "renamed"})
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("status = %d, body %v", resp.StatusCode, body)
		}
		if code := errorCode(t, body); code != "TICKET_CLOSED" {
			t.Fatalf("code = %s", code)
		}
	})

	t.Run("owner deletes the closed ticket", func(t *testing.T) {
		resp, _ := env.do(t, "DELETE", "/tickets/"+ticketID, env.customerToken, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		resp, _ = env.do(t, "GET", "/tickets/"+ticketID, env.customerToken, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("deleted ticket still visible: %d", resp.StatusCode)
		}
	})
}

func (e *testEnv) upload(t *testing.T, token, name string, size int) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte("a"), size)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/tickets/attachments", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestAttachmentUpload(t *testing.T) {
	const maxUpload = 5 * 1024 * 1024
	env := newTestEnvWithUploadLimit(t, maxUpload)

	t.Run("just under the limit is accepted", func(t *testing.T) {
		size := maxUpload - 512*1024
		resp, body := env.upload(t, env.customerToken, "screenshot.png", size)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, body %v", resp.StatusCode, body)
		}
		data := body["data"].(map[string]any)
		if int64(data["sizeBytes"].(float64)) != int64(size) {
			t.Fatalf("sizeBytes = %v", data["sizeBytes"])
		}
	})

	t.Run("over the limit is the typed refusal", func(t *testing.T) {
		resp, body := env.upload(t, env.customerToken, "huge.bin", maxUpload+512*1024)
		if resp.StatusCode != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d, body %v", resp.StatusCode, body)
		}
		if code := errorCode(t, body); code != "FILE_TOO_LARGE" {
			t.Fatalf("code = %s", code)
		}
	})
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t)

	t.Run("anonymous is refused", func(t *testing.T) {
		resp, _ := env.do(t, "GET", "/health/metrics", "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})

	t.Run("customer is refused", func(t *testing.T) {
		resp, _ := env.do(t, "GET", "/health/metrics", env.customerToken, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})

	t.Run("agent reads the counters", func(t *testing.T) {
		resp, body := env.do(t, "GET", "/health/metrics", env.agentToken, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body %v", resp.StatusCode, body)
		}
		if _, ok := body["requests"]; !ok {
			t.Fatalf("no request counters in %v", body)
		}
	})
}

func TestAuthRoutes(t *testing.T) {
	env := newTestEnv(t)

	t.Run("signup issues a working token", func(t *testing.T) {
		resp, body := env.do(t, "POST", "/auth/signup", "", map[string]any{
			"name":     "Carol",
			"email":    "carol@example.com",
			"password": "hunter22",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, body %v", resp.StatusCode, body)
		}
		data := body["data"].(map[string]any)
		user := data["user"].(map[string]any)
		if user["role"] != "customer" {
			t.Fatalf("public signup must create customers, got %v", user["role"])
		}
		token := data["auth"].(map[string]any)["token"].(string)

		listResp, _ := env.do(t, "GET", "/tickets", token, nil)
		if listResp.StatusCode != http.StatusOK {
			t.Fatalf("issued token rejected: %d", listResp.StatusCode)
		}
	})

	t.Run("login with wrong password", func(t *testing.T) {
		resp, body := env.do(t, "POST", "/auth/login", "", map[string]any{
			"email":    "alice@example.com",
			"password": "wrong",
		})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, body %v", resp.StatusCode, body)
		}
		if code := errorCode(t, body); code != "AUTH_FAILED" {
			t.Fatalf("code = %s", code)
		}
	})

	t.Run("health live", func(t *testing.T) {
		resp, body := env.do(t, "GET", "/health/live", "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body["status"] != "alive" {
			t.Fatalf("body = %v", body)
		}
	})
}
