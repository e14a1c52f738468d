package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/campus-reservations/internal/catalog"
	"github.com/example/campus-reservations/internal/config"
	"github.com/example/campus-reservations/internal/testfixtures"
)

const testSecret = "test-secret"

type apiClient struct {
	t       *testing.T
	handler http.Handler
	clock   *testfixtures.Clock
	svc     services
}

func newAPIClient(t *testing.T, driver string) *apiClient {
	t.Helper()

	cfg := config.Config{
		StorageDriver:      driver,
		SQLiteDSN:          filepath.Join(t.TempDir(), "reservations.db"),
		JWTSecret:          testSecret,
		AdminRoles:         []string{"admin"},
		MaxStationDuration: 4 * time.Hour,
		ExpiringSoonWindow: 15 * time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := openStorage(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("openStorage failed: %v", err)
	}
	t.Cleanup(func() { _ = store.close() })

	locker, closeLocker, err := newLocker(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("newLocker failed: %v", err)
	}
	t.Cleanup(closeLocker)

	clock := testfixtures.NewClock(testfixtures.At(8, 0))
	ids := testfixtures.NewIDGenerator("res")
	svc := newServices(cfg, store, locker, nil, ids.NextFunc(), clock.NowFunc(), logger)

	return &apiClient{t: t, handler: newHandler(cfg, svc, logger), clock: clock, svc: svc}
}

func (c *apiClient) token(subject, role string) string {
	c.t.Helper()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		c.t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (c *apiClient) do(subject, method, path, body string) (int, map[string]any) {
	c.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if subject != "" {
		role := ""
		if subject == "admin" {
			role = "admin"
		}
		req.Header.Set("Authorization", "Bearer "+c.token(subject, role))
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(rec.Body).Decode(&decoded); err != nil {
			c.t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return rec.Code, decoded
}

func (c *apiClient) mustDo(subject, method, path, body string, want int) map[string]any {
	c.t.Helper()
	code, decoded := c.do(subject, method, path, body)
	if code != want {
		c.t.Fatalf("%s %s: status = %d, want %d (body %v)", method, path, code, want, decoded)
	}
	return decoded
}

func field(body map[string]any, keys ...string) any {
	var current any = body
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

func TestRoomReservationFlow(t *testing.T) {
	for _, driver := range []string{config.DriverMemory, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			c := newAPIClient(t, driver)

			c.mustDo("admin", http.MethodPost, "/resources", `{"id":"room-101","kind":"room","label":"Seminar 101","capacity":20}`, http.StatusCreated)
			c.mustDo("alice", http.MethodPost, "/resources", `{"id":"room-102","kind":"room","label":"Seminar 102"}`, http.StatusForbidden)

			created := c.mustDo("alice", http.MethodPost, "/reservations",
				`{"resource_id":"room-101","kind":"room","start":"2025-03-03T09:00:00Z","end":"2025-03-03T10:00:00Z","purpose":"Study group"}`,
				http.StatusCreated)
			aliceID, _ := field(created, "reservation", "id").(string)
			if aliceID == "" || field(created, "reservation", "purpose") != "Study group" {
				t.Fatalf("unexpected reservation: %v", created)
			}

			conflict := c.mustDo("bob", http.MethodPost, "/reservations",
				`{"resource_id":"room-101","kind":"room","start":"2025-03-03T09:30:00Z","end":"2025-03-03T10:30:00Z"}`,
				http.StatusConflict)
			if conflict["error_code"] != "RESERVATION_CONFLICT" {
				t.Fatalf("unexpected conflict body: %v", conflict)
			}
			if conflicts, _ := conflict["conflicts"].([]any); len(conflicts) != 1 {
				t.Fatalf("expected one conflict, got %v", conflict["conflicts"])
			}

			c.mustDo("bob", http.MethodPost, "/reservations",
				`{"resource_id":"room-101","kind":"room","start":"2025-03-03T10:00:00Z","end":"2025-03-03T11:00:00Z"}`,
				http.StatusCreated)

			availability := c.mustDo("bob", http.MethodGet, "/resources/room-101/availability?start=2025-03-03T09:00:00Z&end=2025-03-03T11:00:00Z", "", http.StatusOK)
			if availability["available"] != false {
				t.Fatalf("window should be taken: %v", availability)
			}

			resource := c.mustDo("bob", http.MethodGet, "/resources/room-101", "", http.StatusOK)
			if field(resource, "resource", "status") != "reserved" {
				t.Fatalf("expected reserved status, got %v", resource)
			}

			c.mustDo("bob", http.MethodPost, "/reservations/"+aliceID+"/cancel", "", http.StatusForbidden)
			cancelled := c.mustDo("alice", http.MethodPost, "/reservations/"+aliceID+"/cancel", "", http.StatusOK)
			if field(cancelled, "reservation", "status") != "cancelled" {
				t.Fatalf("unexpected cancel response: %v", cancelled)
			}

			fetched := c.mustDo("bob", http.MethodGet, "/reservations/"+aliceID, "", http.StatusOK)
			if field(fetched, "reservation", "purpose") != "Study group" {
				t.Fatalf("metadata should survive reads: %v", fetched)
			}

			c.clock.Set(testfixtures.At(11, 0))
			listed := c.mustDo("bob", http.MethodGet, "/reservations?mine=true", "", http.StatusOK)
			items, _ := listed["reservations"].([]any)
			if len(items) != 1 || field(items[0].(map[string]any), "status") != "completed" {
				t.Fatalf("ended room reservation should be completed: %v", listed)
			}
		})
	}
}

func TestStationClaimFlow(t *testing.T) {
	c := newAPIClient(t, config.DriverMemory)

	c.mustDo("admin", http.MethodPost, "/resources", `{"id":"station-1","kind":"station","label":"Bench 1"}`, http.StatusCreated)
	c.mustDo("admin", http.MethodPost, "/resources", `{"id":"station-2","kind":"station","label":"Bench 2"}`, http.StatusCreated)

	c.mustDo("alice", http.MethodPost, "/reservations",
		`{"resource_id":"station-1","kind":"station","start":"2025-03-03T08:00:00Z","end":"2025-03-03T09:00:00Z"}`,
		http.StatusCreated)

	duplicate := c.mustDo("alice", http.MethodPost, "/reservations",
		`{"resource_id":"station-2","kind":"station","start":"2025-03-03T08:00:00Z","end":"2025-03-03T09:00:00Z"}`,
		http.StatusConflict)
	if duplicate["error_code"] != "ACTIVE_RESERVATION_EXISTS" || field(duplicate, "active_reservation", "resource_label") != "Bench 1" {
		t.Fatalf("unexpected duplicate body: %v", duplicate)
	}

	tooLong := c.mustDo("bob", http.MethodPost, "/reservations",
		`{"resource_id":"station-2","kind":"station","start":"2025-03-03T08:00:00Z","end":"2025-03-03T13:00:00Z"}`,
		http.StatusUnprocessableEntity)
	if field(tooLong, "errors", "end") == nil {
		t.Fatalf("expected end validation error: %v", tooLong)
	}

	if got := c.mustDo("alice", http.MethodGet, "/reservations/expiring-soon", "", http.StatusOK); got["reservation"] != nil {
		t.Fatalf("claim is not expiring yet: %v", got)
	}

	c.clock.Set(testfixtures.At(8, 50))
	alert := c.mustDo("alice", http.MethodGet, "/reservations/expiring-soon", "", http.StatusOK)
	if field(alert, "reservation", "alert_sent") != true {
		t.Fatalf("expected expiring claim: %v", alert)
	}
	if again := c.mustDo("alice", http.MethodGet, "/reservations/expiring-soon", "", http.StatusOK); again["reservation"] != nil {
		t.Fatalf("alert should fire once: %v", again)
	}

	c.clock.Set(testfixtures.At(9, 0))
	listed := c.mustDo("alice", http.MethodGet, "/reservations?mine=true", "", http.StatusOK)
	items, _ := listed["reservations"].([]any)
	if len(items) != 1 || field(items[0].(map[string]any), "status") != "expired" {
		t.Fatalf("ended station claim should be expired: %v", listed)
	}

	c.mustDo("alice", http.MethodPost, "/reservations",
		`{"resource_id":"station-2","kind":"station","start":"2025-03-03T09:00:00Z","end":"2025-03-03T10:00:00Z"}`,
		http.StatusCreated)

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `reservations_created_total{kind="station"} 2`) {
		t.Fatalf("metrics missing station counter:\n%s", rec.Body.String())
	}
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	c := newAPIClient(t, config.DriverMemory)

	code, body := c.do("", http.MethodGet, "/reservations", "")
	if code != http.StatusUnauthorized || body["error_code"] != "AUTH_REQUIRED" {
		t.Fatalf("unexpected response %d %v", code, body)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestRejectedKindsDoNotMintMetricSeries(t *testing.T) {
	c := newAPIClient(t, config.DriverMemory)
	c.mustDo("admin", http.MethodPost, "/resources", `{"id":"room-1","kind":"room","label":"Seminar 1"}`, http.StatusCreated)

	for _, kind := range []string{"junk-1", "junk-2", "junk-3", "Room"} {
		c.mustDo("alice", http.MethodPost, "/reservations",
			`{"resource_id":"room-1","kind":"`+kind+`","start":"2025-03-03T09:00:00Z","end":"2025-03-03T10:00:00Z"}`,
			http.StatusUnprocessableEntity)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `reservations_rejected_total{kind="unknown",reason="validation"} 4`) {
		t.Fatalf("expected rejections folded into kind=\"unknown\":\n%s", body)
	}
	if strings.Contains(body, `kind="junk-`) || strings.Contains(body, `kind="Room"`) {
		t.Fatalf("client-supplied kind leaked into metric labels:\n%s", body)
	}
}

func TestCatalogSeedAndReconcile(t *testing.T) {
	c := newAPIClient(t, config.DriverMemory)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	seed := "resources:\n  - id: room-201\n    kind: room\n    label: Lab Room\n  - id: station-9\n    kind: station\n    label: Bench 9\n    active: false\n"
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	loaded, err := catalog.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := catalog.Apply(context.Background(), loaded, c.svc.resources, nil); err != nil {
			t.Fatalf("Apply #%d failed: %v", i+1, err)
		}
	}
	if _, err := c.svc.projector.ReconcileAll(context.Background()); err != nil {
		t.Fatalf("ReconcileAll failed: %v", err)
	}

	listed := c.mustDo("alice", http.MethodGet, "/resources", "", http.StatusOK)
	items, _ := listed["resources"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected two seeded resources, got %v", listed)
	}
	inactive := c.mustDo("alice", http.MethodGet, "/resources/station-9", "", http.StatusOK)
	if field(inactive, "resource", "status") != "out_of_service" {
		t.Fatalf("inactive station should be out of service: %v", inactive)
	}
}

func TestOpenStorageRejectsUnknownDriver(t *testing.T) {
	_, err := openStorage(context.Background(), config.Config{StorageDriver: "mongo"}, nil)
	if err == nil || !strings.Contains(err.Error(), "mongo") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestNewPublisherDisabledWithoutURL(t *testing.T) {
	publisher, closer, err := newPublisher(config.Config{}, nil)
	if err != nil || publisher != nil {
		t.Fatalf("expected no publisher, got %v %v", publisher, err)
	}
	closer()
}
