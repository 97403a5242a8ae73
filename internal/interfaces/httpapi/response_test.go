package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

func TestWriteSuccess_GoogleEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, http.StatusOK, map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}

	if got, _ := body["apiVersion"].(string); got != "2.0" {
		t.Fatalf("expected apiVersion=2.0, got %v", body["apiVersion"])
	}
	if _, ok := body["data"]; !ok {
		t.Fatalf("expected data key in success response")
	}
	if _, ok := body["error"]; ok {
		t.Fatalf("did not expect error key in success response")
	}
}

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantReason string
	}{
		{"invalid input", fmt.Errorf("%w: bad payload", usecase.ErrInvalidInput), http.StatusBadRequest, "INVALID_ARGUMENT", "invalidInput"},
		{"not found", usecase.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "notFound"},
		{"unauthorized", usecase.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHENTICATED", "unauthorized"},
		{"rate limited", usecase.ErrRateLimited, http.StatusTooManyRequests, "RESOURCE_EXHAUSTED", "rateLimited"},
		{"dependency down", usecase.ErrDependencyUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE", "dependencyUnavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL", "internalError"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(context.Background(), rec, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}

			var body struct {
				Error struct {
					Code   int    `json:"code"`
					Status string `json:"status"`
					Errors []struct {
						Domain string `json:"domain"`
						Reason string `json:"reason"`
					} `json:"errors"`
				} `json:"error"`
			}
			if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal response body: %v", err)
			}
			if body.Error.Code != tc.wantStatus {
				t.Fatalf("expected error.code %d, got %d", tc.wantStatus, body.Error.Code)
			}
			if body.Error.Status != tc.wantCode {
				t.Fatalf("expected error.status %q, got %q", tc.wantCode, body.Error.Status)
			}
			if len(body.Error.Errors) == 0 || body.Error.Errors[0].Reason != tc.wantReason {
				t.Fatalf("expected reason %q, got %+v", tc.wantReason, body.Error.Errors)
			}
			if body.Error.Errors[0].Domain != "turkish-stars-tracker" {
				t.Fatalf("unexpected error domain %q", body.Error.Errors[0].Domain)
			}
		})
	}
}
