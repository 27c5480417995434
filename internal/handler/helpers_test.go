package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/perks/perks/internal/auth"
	"github.com/perks/perks/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	regularCaller = &model.AuthContext{UserID: 1, UTORid: "regular1", Role: model.RoleRegular, Verified: true}
	cashierCaller = &model.AuthContext{UserID: 2, UTORid: "cashier1", Role: model.RoleCashier, Verified: true}
	managerCaller = &model.AuthContext{UserID: 3, UTORid: "manager1", Role: model.RoleManager, Verified: true}
)

// serve routes a single request through a chi router so URL params resolve.
// body may be a string (sent verbatim) or any value encoded as JSON.
func serve(t *testing.T, method, pattern, target string, h http.HandlerFunc, caller *model.AuthContext, body any) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if caller != nil {
		req = req.WithContext(auth.ContextWithAuth(req.Context(), caller))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v (body %q)", err, rec.Body.String())
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
