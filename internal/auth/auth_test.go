package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"geochat/internal/db"
	"geochat/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Connect(":memory:")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return gdb
}

func TestNewToken(t *testing.T) {
	t1 := NewToken()
	t2 := NewToken()

	if t1 == "" {
		t.Error("NewToken() returned empty token")
	}
	if t1 == t2 {
		t.Error("NewToken() should generate unique tokens")
	}
	// uuid4 text form is 36 chars
	if len(t1) != 36 {
		t.Errorf("NewToken() token length = %d, want 36", len(t1))
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid bearer", "Bearer abc123", "abc123"},
		{"lowercase bearer", "bearer abc123", "abc123"},
		{"missing header", "", ""},
		{"not bearer", "Basic abc123", ""},
		{"bearer only", "Bearer ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := BearerToken(r); got != tt.want {
				t.Errorf("BearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandshakeToken_QueryTakesPrecedence(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
	r.Header.Set("Authorization", "Bearer from-header")

	if got := HandshakeToken(r); got != "from-query" {
		t.Errorf("HandshakeToken() = %q, want from-query", got)
	}
}

func TestHandshakeToken_FallsBackToHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer from-header")

	if got := HandshakeToken(r); got != "from-header" {
		t.Errorf("HandshakeToken() = %q, want from-header", got)
	}
}

func TestResolveToken(t *testing.T) {
	gdb := testDB(t)
	user := models.User{Username: "alice", Token: NewToken(), LastSeen: time.Now().UTC()}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := ResolveToken(gdb, user.Token)
	if err != nil {
		t.Fatalf("ResolveToken() error = %v", err)
	}
	if got.ID != user.ID || got.Username != "alice" {
		t.Errorf("ResolveToken() = %+v, want alice (%d)", got, user.ID)
	}

	if _, err := ResolveToken(gdb, "no-such-token"); err == nil {
		t.Error("ResolveToken() should fail for unknown token")
	}
	if _, err := ResolveToken(gdb, ""); err == nil {
		t.Error("ResolveToken() should fail for empty token")
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gdb := testDB(t)
	user := models.User{Username: "bob", Token: NewToken(), LastSeen: time.Now().UTC()}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	r := gin.New()
	r.GET("/me", Middleware(gdb), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c)})
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + user.Token, http.StatusOK},
		{"unknown token", "Bearer bogus", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
