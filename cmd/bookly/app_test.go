package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"bookly/internal/domain/notification"
	"bookly/internal/infra/config"
	ginserver "bookly/internal/infra/http/gin"
	"bookly/internal/infra/notify"
	"bookly/internal/infra/obs"
	"bookly/internal/infra/security"
	"bookly/internal/infra/storage/memory"
)

type testEnv struct {
	router *gin.Engine
	store  *memory.Store
	infra  *infrastructure
}

func newTestEnv(t *testing.T, configure ...func(*infrastructure)) *testEnv {
	t.Helper()
	cfg := config.Config{
		Env:             "test",
		Timezone:        "UTC",
		StoreDriver:     config.DriverMemory,
		LockDriver:      config.DriverMemory,
		NotifyTransport: config.TransportNone,
		LockWait:        2 * time.Second,
		LockTTL:         10 * time.Second,
		IdempotencyTTL:  time.Hour,
		JWTTTL:          time.Hour,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	in := &infrastructure{ready: func(context.Context) error { return nil }}
	useMemoryStore(in, store, cfg)
	in.locker = memory.NewLocker()
	in.notifier = notify.StoreNotifier{Repo: in.notifications}
	in.relayWorker = newRelayWorker(in, cfg, logger)
	for _, fn := range configure {
		fn(in)
	}

	clock := func() time.Time { return time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC) }
	app := buildApplication(cfg, in, logger, clock)

	fx := fixtures{
		Resources: []resourceFixture{
			{ID: "5", Name: "Room Five", Category: "room", Capacity: 6},
			{ID: "lab", Name: "Lab", Category: "room", Status: "maintenance"},
		},
		Users: []userFixture{
			{ID: "u-alice", Email: "alice@example.com", Name: "Alice", Password: "alice-pass", Roles: []string{"user"}},
			{ID: "u-bob", Email: "bob@example.com", Name: "Bob", Password: "bob-pass", Roles: []string{"user"}},
			{ID: "u-manager", Email: "manager@example.com", Name: "Manager", Password: "manager-pass", Roles: []string{"manager"}},
		},
	}
	if err := seed(context.Background(), fx, in.factory, security.BcryptHasher{Cost: 4}, logger); err != nil {
		t.Fatalf("seed: %v", err)
	}
	router := ginserver.NewRouter(cfg, obs.Middleware{}, obs.HealthHandlers{Ready: in.ready}, app.handlers)
	return &testEnv{router: router, store: store, infra: in}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	token, _ := out["token"].(string)
	if token == "" {
		t.Fatalf("login %s: empty token", email)
	}
	return token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func bookingBody(start, end string) map[string]any {
	return map[string]any{"resource_id": "5", "date": "2025-06-01", "start_time": start, "end_time": end}
}

func TestCreateThenConflict(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice@example.com", "alice-pass")

	rec := env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("10:00", "11:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create A: status %d body %s", rec.Code, rec.Body.String())
	}
	if status := decode(t, rec)["status"]; status != "pending" {
		t.Fatalf("expected pending, got %v", status)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("10:30", "11:30"), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("create B: expected 409, got %d body %s", rec.Code, rec.Body.String())
	}
	errs, _ := decode(t, rec)["errors"].(map[string]any)
	if _, ok := errs["time"]; !ok {
		t.Fatalf("expected errors.time in conflict body, got %s", rec.Body.String())
	}
	if n := env.store.BookingCount(); n != 1 {
		t.Fatalf("conflicting create must not persist, have %d bookings", n)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("11:00", "12:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create C back-to-back: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestApproveCancelPromotesWaitingEntry(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice@example.com", "alice-pass")
	bob := env.login(t, "bob@example.com", "bob-pass")
	manager := env.login(t, "manager@example.com", "manager-pass")

	rec := env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("10:00", "11:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create A: status %d body %s", rec.Code, rec.Body.String())
	}
	bookingA := decode(t, rec)["id"].(string)

	rec = env.do(t, http.MethodPost, "/api/v1/bookings/"+bookingA+"/approve", alice, nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("owner approve: expected 403, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/v1/bookings/"+bookingA+"/approve", manager, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: status %d body %s", rec.Code, rec.Body.String())
	}
	if status := decode(t, rec)["status"]; status != "approved" {
		t.Fatalf("expected approved, got %v", status)
	}
	rec = env.do(t, http.MethodPost, "/api/v1/bookings/"+bookingA+"/approve", manager, nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second approve: expected 400, got %d", rec.Code)
	}

	entryBody := bookingBody("10:00", "11:00")
	entryBody["priority"] = 1
	rec = env.do(t, http.MethodPost, "/api/v1/waiting-list", bob, entryBody, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add entry: status %d body %s", rec.Code, rec.Body.String())
	}
	entryID := decode(t, rec)["id"].(string)

	rec = env.do(t, http.MethodPost, "/api/v1/bookings/"+bookingA+"/cancel", alice, map[string]string{"reason": "plans changed"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: status %d body %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["status"] != "cancelled" {
		t.Fatalf("expected cancelled, got %v", out["status"])
	}
	promoted, ok := out["promoted_booking"].(map[string]any)
	if !ok {
		t.Fatalf("expected promoted_booking, got %s", rec.Body.String())
	}
	if promoted["user_id"] != "u-bob" || promoted["status"] != "approved" {
		t.Fatalf("unexpected promoted booking %v", promoted)
	}
	if promoted["start_time"] != "10:00" || promoted["end_time"] != "11:00" {
		t.Fatalf("promoted booking must keep the entry slot, got %v", promoted)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/waiting-list?resource_id=5&date=2025-06-01", manager, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list entries: status %d", rec.Code)
	}
	items, _ := decode(t, rec)["items"].([]any)
	for _, item := range items {
		if item.(map[string]any)["id"] == entryID {
			t.Fatalf("promoted entry %s still listed as active", entryID)
		}
	}

	rec = env.do(t, http.MethodPost, "/api/v1/waiting-list/"+entryID+"/promote", manager, nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("promote twice: expected 400, got %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/me/notifications", bob, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("notifications: status %d", rec.Code)
	}
	found := false
	notes, _ := decode(t, rec)["items"].([]any)
	for _, n := range notes {
		if n.(map[string]any)["type"] == "waiting_list_promotion" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a waiting_list_promotion notification, got %s", rec.Body.String())
	}
}

func TestConcurrentCreateOneWins(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice@example.com", "alice-pass")
	bob := env.login(t, "bob@example.com", "bob-pass")

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i, token := range []string{alice, bob} {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			codes[i] = env.do(t, http.MethodPost, "/api/v1/bookings", token, bookingBody("14:00", "15:00"), nil).Code
		}(i, token)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	if created != 1 || conflicts != 1 {
		t.Fatalf("expected one 201 and one 409, got %v", codes)
	}
	if n := env.store.BookingCount(); n != 1 {
		t.Fatalf("expected exactly one stored booking, got %d", n)
	}
}

func TestPromotionRespectsAvailability(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice@example.com", "alice-pass")
	bob := env.login(t, "bob@example.com", "bob-pass")
	manager := env.login(t, "manager@example.com", "manager-pass")

	rec := env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("10:00", "11:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create A: status %d", rec.Code)
	}
	bookingA := decode(t, rec)["id"].(string)
	rec = env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("11:00", "12:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create C: status %d", rec.Code)
	}

	// Wider than the interval freed by A, so cancelling A must not promote it.
	rec = env.do(t, http.MethodPost, "/api/v1/waiting-list", bob, bookingBody("10:00", "12:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add wide entry: status %d body %s", rec.Code, rec.Body.String())
	}
	wideID := decode(t, rec)["id"].(string)

	rec = env.do(t, http.MethodPost, "/api/v1/bookings/"+bookingA+"/cancel", alice, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: status %d body %s", rec.Code, rec.Body.String())
	}
	if _, ok := decode(t, rec)["promoted_booking"]; ok {
		t.Fatalf("entry not fitting the freed interval was promoted: %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/waiting-list/"+wideID+"/promote", manager, nil, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("promote over a taken slot: expected 422, got %d body %s", rec.Code, rec.Body.String())
	}
	if msg, _ := decode(t, rec)["message"].(string); msg == "" {
		t.Fatalf("expected a message in the promotion error body")
	}
}

func TestIdempotentCreateReplaysResult(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice@example.com", "alice-pass")
	headers := map[string]string{"Idempotency-Key": "create-1"}

	first := env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("16:00", "17:00"), headers)
	second := env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("16:00", "17:00"), headers)
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("expected two 201 responses, got %d and %d", first.Code, second.Code)
	}
	if decode(t, first)["id"] != decode(t, second)["id"] {
		t.Fatalf("replayed create returned a different booking")
	}
	if n := env.store.BookingCount(); n != 1 {
		t.Fatalf("expected one stored booking, got %d", n)
	}

	reused := env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("17:00", "18:00"), headers)
	if reused.Code != http.StatusUnprocessableEntity {
		t.Fatalf("key reused for another slot: expected 422, got %d body %s", reused.Code, reused.Body.String())
	}
	if n := env.store.BookingCount(); n != 1 {
		t.Fatalf("reused key must not create a booking, have %d", n)
	}
}

func TestRequestErrors(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice@example.com", "alice-pass")

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{name: "anonymous create", method: http.MethodPost, path: "/api/v1/bookings", body: bookingBody("10:00", "11:00"), want: http.StatusUnauthorized},
		{name: "bad token", method: http.MethodGet, path: "/api/v1/auth/me", token: "not-a-jwt", want: http.StatusUnauthorized},
		{name: "end before start", method: http.MethodPost, path: "/api/v1/bookings", token: alice, body: bookingBody("11:00", "10:00"), want: http.StatusUnprocessableEntity},
		{name: "missing fields", method: http.MethodPost, path: "/api/v1/bookings", token: alice, body: map[string]any{"resource_id": "5"}, want: http.StatusUnprocessableEntity},
		{name: "past date", method: http.MethodPost, path: "/api/v1/bookings", token: alice, body: map[string]any{"resource_id": "5", "date": "2025-05-01", "start_time": "10:00", "end_time": "11:00"}, want: http.StatusUnprocessableEntity},
		{name: "unknown resource", method: http.MethodPost, path: "/api/v1/bookings", token: alice, body: map[string]any{"resource_id": "nope", "date": "2025-06-01", "start_time": "10:00", "end_time": "11:00"}, want: http.StatusNotFound},
		{name: "maintenance", method: http.MethodPost, path: "/api/v1/bookings", token: alice, body: map[string]any{"resource_id": "lab", "date": "2025-06-01", "start_time": "10:00", "end_time": "11:00"}, want: http.StatusUnprocessableEntity},
		{name: "unknown booking", method: http.MethodGet, path: "/api/v1/bookings/missing", token: alice, want: http.StatusNotFound},
		{name: "bad login", method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]string{"email": "alice@example.com", "password": "wrong"}, want: http.StatusUnauthorized},
		{name: "schedule", method: http.MethodGet, path: "/api/v1/resources/5/schedule?date=2025-06-01", want: http.StatusOK},
		{name: "resources", method: http.MethodGet, path: "/api/v1/resources", want: http.StatusOK},
		{name: "me", method: http.MethodGet, path: "/api/v1/auth/me", token: alice, want: http.StatusOK},
		{name: "livez", method: http.MethodGet, path: "/livez", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, tc.method, tc.path, tc.token, tc.body, nil)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d body %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRescheduleChecksOverlapAndFreesOldSlot(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice@example.com", "alice-pass")
	bob := env.login(t, "bob@example.com", "bob-pass")

	rec := env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("10:00", "11:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create A: status %d", rec.Code)
	}
	bookingA := decode(t, rec)["id"].(string)
	rec = env.do(t, http.MethodPost, "/api/v1/bookings", bob, bookingBody("12:00", "13:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create B: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/bookings/"+bookingA, bob, map[string]string{"notes": "mine now"}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign update: expected 403, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/bookings/"+bookingA, alice, map[string]string{"start_time": "12:30", "end_time": "13:30"}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("reschedule onto B: expected 409, got %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/bookings/"+bookingA, alice, map[string]string{"start_time": "13:00", "end_time": "14:00"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reschedule back-to-back: status %d body %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["start_time"] != "13:00" || out["end_time"] != "14:00" {
		t.Fatalf("unexpected window %v-%v", out["start_time"], out["end_time"])
	}

	rec = env.do(t, http.MethodPost, "/api/v1/bookings", bob, bookingBody("10:00", "11:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("old slot must be free after reschedule, got %d", rec.Code)
	}
}

func TestRejectPromotesWaitingEntry(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice@example.com", "alice-pass")
	bob := env.login(t, "bob@example.com", "bob-pass")
	manager := env.login(t, "manager@example.com", "manager-pass")

	rec := env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("10:00", "11:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create A: status %d", rec.Code)
	}
	bookingA := decode(t, rec)["id"].(string)
	rec = env.do(t, http.MethodPost, "/api/v1/waiting-list", bob, bookingBody("10:00", "11:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add entry: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/bookings/"+bookingA+"/reject", manager, map[string]string{"reason": "room closed"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: status %d body %s", rec.Code, rec.Body.String())
	}
	out := decode(t, rec)
	if out["status"] != "rejected" {
		t.Fatalf("expected rejected, got %v", out["status"])
	}
	promoted, ok := out["promoted_booking"].(map[string]any)
	if !ok || promoted["user_id"] != "u-bob" || promoted["status"] != "approved" {
		t.Fatalf("expected bob promoted into the rejected slot, got %s", rec.Body.String())
	}

	repeats := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
	}{
		{"reject again", http.MethodPost, "/api/v1/bookings/" + bookingA + "/reject", manager, nil},
		{"cancel rejected", http.MethodPost, "/api/v1/bookings/" + bookingA + "/cancel", alice, nil},
		{"patch status", http.MethodPatch, "/api/v1/bookings/" + bookingA, manager, map[string]string{"status": "rejected"}},
	}
	for _, tc := range repeats {
		rec := env.do(t, tc.method, tc.path, tc.token, tc.body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d body %s", tc.name, rec.Code, rec.Body.String())
		}
		if msg, _ := decode(t, rec)["message"].(string); msg == "" {
			t.Fatalf("%s: expected a message", tc.name)
		}
	}

	rec = env.do(t, http.MethodGet, "/api/v1/bookings/"+bookingA, alice, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	if status := decode(t, rec)["status"]; status != "rejected" {
		t.Fatalf("status must stay rejected, got %v", status)
	}
}

func notificationsOf(t *testing.T, env *testEnv, token string) []map[string]any {
	t.Helper()
	rec := env.do(t, http.MethodGet, "/api/v1/me/notifications", token, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("notifications: status %d", rec.Code)
	}
	items, _ := decode(t, rec)["items"].([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, item.(map[string]any))
	}
	return out
}

func hasPending(notes []map[string]any, audience string) bool {
	for _, n := range notes {
		payload, _ := n["payload"].(map[string]any)
		if n["type"] == "booking_pending" && payload["audience"] == audience {
			return true
		}
	}
	return false
}

func TestCreateNotifiesRequesterAndStaff(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice@example.com", "alice-pass")
	bob := env.login(t, "bob@example.com", "bob-pass")
	manager := env.login(t, "manager@example.com", "manager-pass")

	rec := env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("10:00", "11:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d", rec.Code)
	}
	if !hasPending(notificationsOf(t, env, manager), "staff") {
		t.Fatalf("manager must receive a staff booking_pending notification")
	}
	if !hasPending(notificationsOf(t, env, alice), "requester") {
		t.Fatalf("requester must receive a booking_pending confirmation")
	}
	if notes := notificationsOf(t, env, bob); len(notes) != 0 {
		t.Fatalf("unrelated users must not be notified, got %v", notes)
	}
}

type unreachableNotifier struct{}

func (unreachableNotifier) Notify(context.Context, notification.Notification) error {
	return errors.New("notification backend unreachable")
}

func TestNotifierFailureKeepsBooking(t *testing.T) {
	env := newTestEnv(t, func(in *infrastructure) { in.notifier = unreachableNotifier{} })
	alice := env.login(t, "alice@example.com", "alice-pass")
	manager := env.login(t, "manager@example.com", "manager-pass")

	rec := env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody("10:00", "11:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create with a failing notifier: status %d body %s", rec.Code, rec.Body.String())
	}
	if n := env.store.BookingCount(); n != 1 {
		t.Fatalf("expected the booking stored, have %d", n)
	}
	id := decode(t, rec)["id"].(string)
	rec = env.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/approve", manager, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve with a failing notifier: status %d", rec.Code)
	}
}

func TestWaitingListRemoveAndVisibility(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice@example.com", "alice-pass")
	bob := env.login(t, "bob@example.com", "bob-pass")
	manager := env.login(t, "manager@example.com", "manager-pass")

	rec := env.do(t, http.MethodPost, "/api/v1/waiting-list", alice, bookingBody("10:00", "11:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("alice entry: status %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/v1/waiting-list", bob, bookingBody("12:00", "13:00"), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("bob entry: status %d", rec.Code)
	}
	bobEntry := decode(t, rec)["id"].(string)

	list := func(token string) []any {
		t.Helper()
		rec := env.do(t, http.MethodGet, "/api/v1/waiting-list?resource_id=5&date=2025-06-01", token, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("list: status %d", rec.Code)
		}
		items, _ := decode(t, rec)["items"].([]any)
		return items
	}
	mine := list(alice)
	if len(mine) != 1 || mine[0].(map[string]any)["user_id"] != "u-alice" {
		t.Fatalf("users only see their own entries, got %v", mine)
	}
	if all := list(manager); len(all) != 2 {
		t.Fatalf("staff see every entry, got %d", len(all))
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/waiting-list/"+bobEntry, alice, nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign remove: expected 403, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/api/v1/waiting-list/"+bobEntry, bob, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: status %d body %s", rec.Code, rec.Body.String())
	}
	if status := decode(t, rec)["status"]; status != "removed" {
		t.Fatalf("expected removed, got %v", status)
	}
	rec = env.do(t, http.MethodDelete, "/api/v1/waiting-list/"+bobEntry, bob, nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second remove: expected 400, got %d", rec.Code)
	}
	if all := list(manager); len(all) != 1 {
		t.Fatalf("removed entries leave the active list, got %d", len(all))
	}
}

func TestRescheduleToAnotherDateWhileCancelling(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice@example.com", "alice-pass")

	for i := 0; i < 10; i++ {
		start, end := fmt.Sprintf("%02d:00", 8+i), fmt.Sprintf("%02d:00", 9+i)
		rec := env.do(t, http.MethodPost, "/api/v1/bookings", alice, bookingBody(start, end), nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %d: status %d body %s", i, rec.Code, rec.Body.String())
		}
		id := decode(t, rec)["id"].(string)

		codes := make([]int, 2)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			codes[0] = env.do(t, http.MethodPatch, "/api/v1/bookings/"+id, alice, map[string]string{"date": "2025-06-02"}, nil).Code
		}()
		go func() {
			defer wg.Done()
			codes[1] = env.do(t, http.MethodPost, "/api/v1/bookings/"+id+"/cancel", alice, nil, nil).Code
		}()
		wg.Wait()

		if codes[1] != http.StatusOK {
			t.Fatalf("round %d: cancel must succeed whichever runs first, got %v", i, codes)
		}
		if codes[0] != http.StatusOK && codes[0] != http.StatusBadRequest {
			t.Fatalf("round %d: move must succeed or see the cancelled state, got %v", i, codes)
		}
		rec = env.do(t, http.MethodGet, "/api/v1/bookings/"+id, alice, nil, nil)
		if status := decode(t, rec)["status"]; status != "cancelled" {
			t.Fatalf("round %d: expected cancelled, got %v", i, status)
		}
	}
}
