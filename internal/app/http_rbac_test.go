package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"caseplan/api/internal/auth"
	"caseplan/api/internal/store"
)

func TestViewerWriteEndpointsAreForbidden(t *testing.T) {
	server, token := newRoleServerAndToken(t, "viewer")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "create plan", method: http.MethodPost, path: "/api/plans", body: `{"personName":"Sam"}`},
		{name: "add goal", method: http.MethodPost, path: "/api/plans/plan-1/goals", body: `{"title":"Goal"}`},
		{name: "add note", method: http.MethodPost, path: "/api/plans/plan-1/notes", body: `{"body":"Note"}`},
		{name: "agree", method: http.MethodPost, path: "/api/plans/plan-1/agree", body: `{"status":"AGREED"}`},
		{name: "sign", method: http.MethodPost, path: "/api/plans/plan-1/sign", body: `{"signType":"SELF"}`},
		{name: "countersign", method: http.MethodPost, path: "/api/plans/plan-1/countersign", body: `{"versionNumber":0,"signType":"COUNTERSIGN"}`},
		{name: "rollback", method: http.MethodPost, path: "/api/plans/plan-1/rollback", body: `{"versionNumber":0}`},
		{name: "export", method: http.MethodPost, path: "/api/plans/plan-1/versions/0/export", body: `{"format":"html"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			server.Handler().ServeHTTP(rr, req)

			if rr.Code != http.StatusForbidden {
				t.Fatalf("expected status 403, got %d body=%s", rr.Code, rr.Body.String())
			}
			var payload map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
				t.Fatalf("parse response: %v", err)
			}
			if payload["code"] != "FORBIDDEN" {
				t.Fatalf("expected code FORBIDDEN, got %v", payload["code"])
			}
		})
	}
}

func TestPractitionerCannotCountersignOrRollback(t *testing.T) {
	server, token := newRoleServerAndToken(t, "practitioner")

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "countersign", path: "/api/plans/plan-1/countersign", body: `{"versionNumber":0,"signType":"COUNTERSIGN"}`},
		{name: "rollback", path: "/api/plans/plan-1/rollback", body: `{"versionNumber":0}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, bytes.NewBufferString(tc.body))
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()

			server.Handler().ServeHTTP(rr, req)

			if rr.Code != http.StatusForbidden {
				t.Fatalf("expected status 403, got %d body=%s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestManagerMayCountersign(t *testing.T) {
	server, token := newRoleServerAndToken(t, "manager")

	// Plan does not exist in the fake, so passing the permission check
	// surfaces as 404 rather than 403.
	req := httptest.NewRequest(http.MethodPost, "/api/plans/plan-1/countersign",
		bytes.NewBufferString(`{"versionNumber":0,"signType":"COUNTERSIGN"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	server, _ := newRoleServerAndToken(t, "practitioner")

	req := httptest.NewRequest(http.MethodGet, "/api/plans/plan-1", nil)
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func newRoleServerAndToken(t *testing.T, role string) (*HTTPServer, string) {
	t.Helper()
	userID := "user-" + role
	secret := "test-secret"

	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, id string) (store.User, error) {
			return store.User{
				ID:          id,
				DisplayName: "Test User",
				Role:        role,
			}, nil
		},
	}
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	token, err := auth.IssueToken([]byte(secret), auth.Claims{
		Sub:  userID,
		Name: "Test User",
		Role: role,
		JTI:  "jti-" + role,
		Exp:  time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return server, token
}
