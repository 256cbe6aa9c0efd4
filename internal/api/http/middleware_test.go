package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticket-bot/internal/observability"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

func TestErrorHandlingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.New(core), metrics, 0)
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("panel", nil)
	})
	app.Get("/slow", func(c *fiber.Ctx) error {
		return fmt.Errorf("fetch guild: %w", context.DeadlineExceeded)
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("unexpected")
	})

	tests := []struct {
		path   string
		reqID  string
		status int
		code   string
	}{
		{"/missing", "req-1", fiber.StatusNotFound, apperrors.CodeNotFound},
		{"/slow", "", fiber.StatusGatewayTimeout, apperrors.CodeTimeout},
		{"/boom", "", fiber.StatusInternalServerError, apperrors.CodeInternal},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tc.path, nil)
			if tc.reqID != "" {
				req.Header.Set(RequestIDHeader, tc.reqID)
			}
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()

			var body struct {
				Error struct {
					Code      string `json:"code"`
					RequestID string `json:"request_id"`
				} `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.StatusCode != tc.status || body.Error.Code != tc.code {
				t.Fatalf("got %d %s, want %d %s", resp.StatusCode, body.Error.Code, tc.status, tc.code)
			}
			header := resp.Header.Get(RequestIDHeader)
			if header == "" || body.Error.RequestID != header {
				t.Errorf("request id header %q does not match body %q", header, body.Error.RequestID)
			}
			if tc.reqID != "" && header != tc.reqID {
				t.Errorf("incoming request id should be kept, got %q", header)
			}
		})
	}

	if got := logs.FilterMessage("admin request rejected").Len(); got != 1 {
		t.Errorf("expected one warn entry, got %d", got)
	}
	if got := logs.FilterMessage("admin request failed").Len(); got != 2 {
		t.Errorf("expected two error entries, got %d", got)
	}
}
