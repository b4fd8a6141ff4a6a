package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/middleware"
	"moneta/internal/models"
	"moneta/internal/services"
	"moneta/internal/validator"
)

const (
	testUserID = "0190b6f0-0000-7000-8000-000000000001"
	testID     = "0190b6f0-0000-7000-8000-0000000000aa"
)

type auditEntry struct {
	action     models.AuditAction
	resourceID string
	changes    map[string]any
	walletIDs  []string
}

type mockAuditService struct {
	entries []auditEntry
}

func (m *mockAuditService) Log(_ context.Context, _ string, entry services.AuditEntry) {
	m.entries = append(m.entries, auditEntry{
		action:     entry.Action,
		resourceID: entry.ResourceID,
		changes:    entry.Changes,
		walletIDs:  entry.WalletIDs,
	})
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

// newTestRouter returns an engine with the error middleware that renders
// what respondWithError attaches.
func newTestRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	return r
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- tests ---

func TestGetUserID(t *testing.T) {
	t.Run("returns user id from context", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("userID", testUserID)

		got, err := getUserID(c)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != testUserID {
			t.Errorf("expected %s, got %s", testUserID, got)
		}
	})

	t.Run("missing user id is unauthorized", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		_, err := getUserID(c)
		if !errors.Is(err, apperrors.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestParsePathID(t *testing.T) {
	r := newTestRouter()
	r.GET("/items/:id", func(c *gin.Context) {
		id, err := parsePathID(c, "id")
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	t.Run("canonicalizes valid uuid", func(t *testing.T) {
		rec := doRequest(r, "GET", "/items/0190B6F0-0000-7000-8000-0000000000AA", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := parseJSON(t, rec)["id"]; got != testID {
			t.Errorf("expected %s, got %v", testID, got)
		}
	})

	t.Run("rejects non-uuid", func(t *testing.T) {
		rec := doRequest(r, "GET", "/items/42", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestParseFlexibleTime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-03-15", want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{in: "2024-03-15T10:30:00Z", want: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{in: "15/03/2024", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFlexibleTime(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRespondWithError_StopsChain(t *testing.T) {
	reached := false
	r := newTestRouter()
	r.GET("/missing", func(c *gin.Context) {
		respondWithError(c, apperrors.ErrWalletNotFound)
	}, func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	rec := doRequest(r, "GET", "/missing", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "WALLET_NOT_FOUND")
	if reached {
		t.Error("expected later handlers to be skipped")
	}
}

func TestRespondWithError_Unexpected(t *testing.T) {
	r := newTestRouter()
	r.GET("/boom", func(c *gin.Context) {
		respondWithError(c, errors.New("db exploded"))
	})

	rec := doRequest(r, "GET", "/boom", "")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	result := parseJSON(t, rec)
	assertErrorCode(t, result, "INTERNAL_ERROR")
	if strings.Contains(rec.Body.String(), "exploded") {
		t.Error("internal error details leaked to client")
	}
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(_ context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	t.Run("healthy database", func(t *testing.T) {
		r := newTestRouter()
		r.GET("/health", NewHealthHandler(stubPinger{}).Health)

		rec := doRequest(r, "GET", "/health", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["database"] != "up" {
			t.Errorf("expected database up, got %s", rec.Body.String())
		}
	})

	t.Run("database down", func(t *testing.T) {
		r := newTestRouter()
		r.GET("/health", NewHealthHandler(stubPinger{err: errors.New("refused")}).Health)

		rec := doRequest(r, "GET", "/health", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}
