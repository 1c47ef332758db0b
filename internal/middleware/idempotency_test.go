package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nexabank/onboarding/internal/logging"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})
	return mr, cache
}

func setupTestApp(t *testing.T) (*fiber.App, *int32) {
	t.Helper()
	_, cache := newRedis(t)

	var calls int32
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-Session"); id != "" {
			c.Locals(sessionIDLocal, id)
		}
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/application", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		var body struct {
			Fail bool `json:"fail"`
		}
		_ = c.BodyParser(&body)
		if body.Fail {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"kind": "validation"})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n})
	})
	return app, &calls
}

func postApplication(t *testing.T, app *fiber.App, key, session, body string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/application", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if session != "" {
		req.Header.Set("X-Session", session)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(payload), resp.Header.Get("Idempotent-Replayed")
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, _ := setupTestApp(t)
	status, _, _ := postApplication(t, app, "", "s1", "{}")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupTestApp(t)

	status, first, _ := postApplication(t, app, "abc123", "s1", "{}")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	status, second, replayed := postApplication(t, app, "abc123", "s1", "{}")
	if status != fiber.StatusCreated || replayed != "true" {
		t.Fatalf("expected replayed %d, got %d replayed=%q", fiber.StatusCreated, status, replayed)
	}
	if first != second {
		t.Fatalf("expected cached payload %s got %s", first, second)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(second), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Fatalf("handler ran %d times", atomic.LoadInt32(calls))
	}
}

func TestIdempotencyKeysAreScopedPerSession(t *testing.T) {
	app, calls := setupTestApp(t)

	postApplication(t, app, "same-key", "s1", "{}")
	status, _, replayed := postApplication(t, app, "same-key", "s2", "{}")
	if status != fiber.StatusCreated || replayed != "" {
		t.Fatalf("other session should not replay, got %d replayed=%q", status, replayed)
	}
	if atomic.LoadInt32(calls) != 2 {
		t.Fatalf("expected handler per session, got %d", atomic.LoadInt32(calls))
	}
}

func TestIdempotencyRejectsDifferentPayload(t *testing.T) {
	app, _ := setupTestApp(t)

	postApplication(t, app, "k1", "s1", `{"a":1}`)
	status, _, _ := postApplication(t, app, "k1", "s1", `{"a":2}`)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected %d got %d", fiber.StatusUnprocessableEntity, status)
	}
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	app, calls := setupTestApp(t)

	status, _, _ := postApplication(t, app, "k1", "s1", `{"fail":true}`)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected failure status, got %d", status)
	}
	status, _, replayed := postApplication(t, app, "k1", "s1", `{"fail":true}`)
	if status != fiber.StatusUnprocessableEntity || replayed != "" {
		t.Fatalf("failures must not be replayed, got %d replayed=%q", status, replayed)
	}
	if atomic.LoadInt32(calls) != 2 {
		t.Fatalf("expected handler to run twice, got %d", atomic.LoadInt32(calls))
	}
}

func TestIdempotencyInProgressConflict(t *testing.T) {
	mr, cache := newRedis(t)
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/application", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	if err := mr.Set(idempotencyPrefix+"anonymous:busy", inProgressMarker); err != nil {
		t.Fatalf("seed: %v", err)
	}
	status, _, _ := postApplication(t, app, "busy", "", "{}")
	if status != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
	}
}
