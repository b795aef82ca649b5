package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fastpix01-lab/fruitamruth/internal/platform/requestctx"
)

func TestWriteErrorIncludesRequestAndTraceIDs(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{TraceID: "trace-1"})

	rec := httptest.NewRecorder()
	WriteError(ctx, rec, NewError("validation_failed", "Please select a payment method.\n", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{"stage": "payment"}))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "validation_failed" || body["message"] != "Please select a payment method." {
		t.Fatalf("unexpected body %v", body)
	}
	if body["request_id"] != "req-1" || body["trace_id"] != "trace-1" || body["stage"] != "payment" {
		t.Fatalf("expected ids and details, got %v", body)
	}
}

func TestNewErrorDefaultsStatus(t *testing.T) {
	if err := NewError("boom", "boom", 0); err.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", err.Status)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Asha"}`))
	if err := DecodeJSON(req, &dst); err != nil || dst.Name != "Asha" {
		t.Fatalf("unexpected decode result %+v err=%v", dst, err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	if err := DecodeJSON(req, &dst); err == nil {
		t.Fatalf("expected unknown field rejected")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(req, &dst); err != ErrEmptyBody {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}
