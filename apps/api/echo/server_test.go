package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/notification"
	"github.com/trezcool/darasa/core/stream"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database/dummy"
	"github.com/trezcool/darasa/tests"
)

type nopSink struct{}

func (nopSink) Handle(context.Context, stream.ChangeEvent) {}

type testApp struct {
	app  Server
	conf *core.Config
	svc  *notification.Service
	mgr  *stream.Manager
	cs   *dummydb.ChangeStream
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Darasa",
		SecretKey: "test-secret",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		Notification: core.NotificationConfig{
			SubscribeRetryMax:     2,
			SubscribeRetryBackoff: time.Millisecond,
		},
	}

	svc, err := notification.NewService(dummydb.NewNotificationRepository(), testutil.Logger{}, conf.Notification)
	if err != nil {
		t.Fatalf("NewService(): %v", err)
	}

	cs := dummydb.NewChangeStream()
	mgr := stream.NewManager(cs, nopSink{}, testutil.Logger{}, conf.Notification)
	t.Cleanup(mgr.Close)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     testutil.Logger{},
		NotifSvc:   svc,
		Manager:    mgr,
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{app: app, conf: conf, svc: svc, mgr: mgr, cs: cs}
}

func (ta *testApp) request(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ta.app.ServeHTTP(rec, req)
	return rec
}

func (ta *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(ta.conf, GetUserClaims(ta.conf, usr))
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}
	return token
}

func parentUser() user.User {
	return user.User{ID: "par1", Name: "Mrs. Mwangi", Roles: []string{user.RoleParent}, Children: []string{"st1"}}
}

func seedRecords(t *testing.T, svc *notification.Service) {
	t.Helper()
	now := time.Now().UTC()
	for _, rec := range []notification.Record{
		{ID: "g1", Title: "New Score for Alice", Category: notification.CategoryGrade, CreatedAt: now},
		{ID: "a1", Title: "Attendance Recorded for Alice", Category: notification.CategoryAttendance, CreatedAt: now.Add(-time.Minute)},
		{ID: "an1", Title: "New Announcement: Sports Day", Category: notification.CategoryAnnouncement, CreatedAt: now.Add(-2 * time.Minute)},
	} {
		if err := svc.Append(rec); err != nil {
			t.Fatalf("Append(): %v", err)
		}
	}
}

func decodeRecords(t *testing.T, rec *httptest.ResponseRecorder) []notification.Record {
	t.Helper()
	var out []notification.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

func Test_notificationApi_query(t *testing.T) {
	ta := newTestApp(t)
	seedRecords(t, ta.svc)
	_ = ta.svc.MarkRead("an1")
	token := ta.token(t, parentUser())

	t.Run("auth required", func(t *testing.T) {
		rec := ta.request(t, http.MethodGet, "/v1/notifications", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d; want 401", rec.Code)
		}
	})

	t.Run("newest first", func(t *testing.T) {
		rec := ta.request(t, http.MethodGet, "/v1/notifications", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; body %s", rec.Code, rec.Body.String())
		}
		got := decodeRecords(t, rec)
		if len(got) != 3 {
			t.Fatalf("got %d records; want 3", len(got))
		}
		for i, want := range []string{"g1", "a1", "an1"} {
			if got[i].ID != want {
				t.Errorf("records[%d] = %q; want %q", i, got[i].ID, want)
			}
		}
	})

	t.Run("category filter", func(t *testing.T) {
		rec := ta.request(t, http.MethodGet, "/v1/notifications?category=grade", token)
		got := decodeRecords(t, rec)
		if len(got) != 1 || got[0].ID != "g1" {
			t.Errorf("got %+v; want [g1]", got)
		}
	})

	t.Run("unread filter", func(t *testing.T) {
		rec := ta.request(t, http.MethodGet, "/v1/notifications?unread=true", token)
		got := decodeRecords(t, rec)
		if len(got) != 2 {
			t.Errorf("got %d records; want 2 unread", len(got))
		}
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		rec := ta.request(t, http.MethodGet, "/v1/notifications?category=gossip", token)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %d; want 400", rec.Code)
		}
	})
}

func Test_notificationApi_markRead(t *testing.T) {
	ta := newTestApp(t)
	seedRecords(t, ta.svc)
	token := ta.token(t, parentUser())

	rec := ta.request(t, http.MethodPut, "/v1/notifications/g1/read", token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %d; body %s", rec.Code, rec.Body.String())
	}
	if n := ta.svc.UnreadCount(); n != 2 {
		t.Errorf("UnreadCount() = %d; want 2", n)
	}

	rec = ta.request(t, http.MethodPut, "/v1/notifications/ghost/read", token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d; want 404", rec.Code)
	}

	rec = ta.request(t, http.MethodPut, "/v1/notifications/read-all", token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %d", rec.Code)
	}
	if n := ta.svc.UnreadCount(); n != 0 {
		t.Errorf("UnreadCount() = %d after read-all; want 0", n)
	}
}

func Test_notificationApi_unreadCount(t *testing.T) {
	ta := newTestApp(t)
	seedRecords(t, ta.svc)
	token := ta.token(t, parentUser())

	rec := ta.request(t, http.MethodGet, "/v1/notifications/unread-count", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.UnreadCount != 3 {
		t.Errorf("unread_count = %d; want 3", body.UnreadCount)
	}
}

func Test_notificationApi_streamStatus(t *testing.T) {
	ta := newTestApp(t)
	usr := parentUser()
	token := ta.token(t, usr)

	// any authed request reconciles the subscription set to the caller's scope
	_ = ta.request(t, http.MethodGet, "/v1/notifications", token)

	wantSig := stream.ScopeOf(usr).Signature()
	if got := ta.mgr.CurrentScope().Signature(); got != wantSig {
		t.Fatalf("CurrentScope() = %q; want %q", got, wantSig)
	}
	testutil.WaitFor(t, "subscriptions healthy", ta.mgr.Healthy)

	rec := ta.request(t, http.MethodGet, "/v1/notifications/stream-status", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body struct {
		Healthy       bool            `json:"healthy"`
		Scope         string          `json:"scope"`
		Subscriptions []stream.Status `json:"subscriptions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !body.Healthy {
		t.Errorf("healthy = false")
	}
	if body.Scope != wantSig {
		t.Errorf("scope = %q; want %q", body.Scope, wantSig)
	}
	if len(body.Subscriptions) != 3 {
		t.Errorf("subscriptions = %d; want 3", len(body.Subscriptions))
	}
}

func Test_notificationApi_endSession(t *testing.T) {
	ta := newTestApp(t)
	token := ta.token(t, parentUser())

	_ = ta.request(t, http.MethodGet, "/v1/notifications", token)
	if ta.mgr.CurrentScope().Empty() {
		t.Fatalf("scope empty after authed request")
	}

	rec := ta.request(t, http.MethodDelete, "/v1/session", token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %d", rec.Code)
	}
	if !ta.mgr.CurrentScope().Empty() {
		t.Errorf("scope not cleared on logout")
	}
	testutil.WaitFor(t, "subscriptions closed", func() bool { return ta.cs.LiveCount() == 0 })
}
