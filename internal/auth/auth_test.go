package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// --- mock session store ---

type mockSessionLookup struct {
	sessions map[string]*Caller
}

func (m *mockSessionLookup) LookupSession(ctx context.Context, token string) (*Caller, error) {
	c, ok := m.sessions[token]
	if !ok {
		return nil, errors.New("not found")
	}
	return c, nil
}

// --- Context helpers tests ---

func TestCallerContext_RoundTrip(t *testing.T) {
	caller := &Caller{ID: "u1", Email: "anna@example.com", Name: "Anna"}
	ctx := ContextWithCaller(context.Background(), caller)
	got := CallerFromContext(ctx)
	if got == nil {
		t.Fatal("expected caller from context, got nil")
	}
	if got.ID != caller.ID {
		t.Errorf("expected ID %q, got %q", caller.ID, got.ID)
	}
}

func TestCallerFromContext_Empty(t *testing.T) {
	got := CallerFromContext(context.Background())
	if got != nil {
		t.Errorf("expected nil from empty context, got %+v", got)
	}
}

// --- SessionMiddleware tests ---

func TestSessionMiddleware(t *testing.T) {
	store := &mockSessionLookup{
		sessions: map[string]*Caller{
			"valid-token": {ID: "u1", Email: "anna@example.com", Name: "Anna"},
		},
	}

	var captured *Caller
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := SessionMiddleware(store)(inner)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantCaller bool
	}{
		{"valid token", "Bearer valid-token", http.StatusOK, true},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, false},
		{"missing header", "", http.StatusUnauthorized, false},
		{"wrong scheme", "Basic valid-token", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captured = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCaller && (captured == nil || captured.ID != "u1") {
				t.Errorf("expected caller u1 in context, got %+v", captured)
			}
			if !tt.wantCaller && captured != nil {
				t.Errorf("expected no caller, got %+v", captured)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				var envelope errorResponse
				if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
					t.Fatalf("failed to decode error body: %v", err)
				}
				if envelope.Error.Code != "unauthorized" {
					t.Errorf("expected code unauthorized, got %q", envelope.Error.Code)
				}
			}
		})
	}
}

// --- ExtractBearerToken tests ---

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name string
		auth string
		want string
	}{
		{"valid bearer", "Bearer my-token-123", "my-token-123"},
		{"empty header", "", ""},
		{"no space", "Bearertoken", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"lowercase scheme accepted", "bearer abc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			got := ExtractBearerToken(req)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
