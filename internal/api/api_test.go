package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/treerootboy/airflow-notification-plugin/internal/config"
	"github.com/treerootboy/airflow-notification-plugin/internal/db"
	"github.com/treerootboy/airflow-notification-plugin/internal/models"
	"github.com/treerootboy/airflow-notification-plugin/internal/ws"
)

// memoryStore is an in-memory Store for handler tests. Devices are keyed
// by token like the real table's unique constraint.
type memoryStore struct {
	devices       map[string]models.Device
	nextDeviceID  int64
	channels      map[int64]models.Channel
	nextChannelID int64
	templates     map[int64]models.Template
	nextTmplID    int64
	subs          map[int64]models.Subscription
	nextSubID     int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		devices:   map[string]models.Device{},
		channels:  map[int64]models.Channel{},
		templates: map[int64]models.Template{},
		subs:      map[int64]models.Subscription{},
	}
}

func (m *memoryStore) UpsertDevice(_ context.Context, token string, platform models.PlatformKind, userID string) (models.Device, bool, error) {
	now := time.Now()
	if dev, ok := m.devices[token]; ok {
		dev.Platform = platform
		dev.UserID = userID
		dev.Active = true
		dev.LastUsedAt = now
		m.devices[token] = dev
		return dev, false, nil
	}
	m.nextDeviceID++
	dev := models.Device{
		ID:         m.nextDeviceID,
		Token:      token,
		Platform:   platform,
		UserID:     userID,
		Active:     true,
		LastUsedAt: now,
		CreatedAt:  now,
	}
	m.devices[token] = dev
	return dev, true, nil
}

func (m *memoryStore) DeactivateDevice(_ context.Context, token string) error {
	dev, ok := m.devices[token]
	if !ok {
		return db.ErrNotFound
	}
	dev.Active = false
	m.devices[token] = dev
	return nil
}

func (m *memoryStore) CreateChannel(_ context.Context, ch models.Channel) (models.Channel, error) {
	m.nextChannelID++
	ch.ID = m.nextChannelID
	m.channels[ch.ID] = ch
	return ch, nil
}

func (m *memoryStore) GetChannel(_ context.Context, id int64) (models.Channel, error) {
	ch, ok := m.channels[id]
	if !ok {
		return models.Channel{}, db.ErrNotFound
	}
	return ch, nil
}

func (m *memoryStore) ListChannels(_ context.Context) ([]models.Channel, error) {
	out := []models.Channel{}
	for _, ch := range m.channels {
		out = append(out, ch)
	}
	return out, nil
}

func (m *memoryStore) UpdateChannel(_ context.Context, ch models.Channel) error {
	if _, ok := m.channels[ch.ID]; !ok {
		return db.ErrNotFound
	}
	m.channels[ch.ID] = ch
	return nil
}

func (m *memoryStore) DeleteChannel(_ context.Context, id int64) error {
	ch, ok := m.channels[id]
	if !ok {
		return db.ErrNotFound
	}
	ch.Active = false
	m.channels[id] = ch
	return nil
}

func (m *memoryStore) CreateSubscription(_ context.Context, s models.Subscription) (models.Subscription, error) {
	m.nextSubID++
	s.ID = m.nextSubID
	m.subs[s.ID] = s
	return s, nil
}

func (m *memoryStore) GetSubscription(_ context.Context, id int64) (models.Subscription, error) {
	s, ok := m.subs[id]
	if !ok {
		return models.Subscription{}, db.ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) GetSubscriptionsByUser(_ context.Context, userID string) ([]models.Subscription, error) {
	out := []models.Subscription{}
	for _, s := range m.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateSubscription(_ context.Context, s models.Subscription) error {
	if _, ok := m.subs[s.ID]; !ok {
		return db.ErrNotFound
	}
	m.subs[s.ID] = s
	return nil
}

func (m *memoryStore) DeleteSubscription(_ context.Context, id int64) error {
	s, ok := m.subs[id]
	if !ok {
		return db.ErrNotFound
	}
	s.Active = false
	m.subs[id] = s
	return nil
}

func (m *memoryStore) CreateTemplate(_ context.Context, t models.Template) (models.Template, error) {
	m.nextTmplID++
	t.ID = m.nextTmplID
	m.templates[t.ID] = t
	return t, nil
}

func (m *memoryStore) GetTemplateByID(_ context.Context, id int64) (models.Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return models.Template{}, db.ErrNotFound
	}
	return t, nil
}

func (m *memoryStore) ListTemplates(_ context.Context) ([]models.Template, error) {
	out := []models.Template{}
	for _, t := range m.templates {
		out = append(out, t)
	}
	return out, nil
}

func (m *memoryStore) UpdateTemplate(_ context.Context, t models.Template) error {
	if _, ok := m.templates[t.ID]; !ok {
		return db.ErrNotFound
	}
	m.templates[t.ID] = t
	return nil
}

func (m *memoryStore) DeleteTemplate(_ context.Context, id int64) error {
	t, ok := m.templates[id]
	if !ok {
		return db.ErrNotFound
	}
	t.Active = false
	m.templates[id] = t
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	store := newMemoryStore()
	var cfg config.Config
	cfg.API.BasePath = "/api/v1/notification"
	return NewRouter(store, logger, cfg, ws.NewHub(logger)), store
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestRegisterDevice(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/notification/register-device", map[string]any{
		"device_token":  "tok-1",
		"platform_type": "android",
		"user_id":       "alice",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != true || body["device_id"] == nil {
		t.Errorf("body = %v", body)
	}
}

func TestRegisterDeviceIdempotentByToken(t *testing.T) {
	r, _ := newTestRouter(t)

	payload := map[string]any{
		"device_token":  "tok-1",
		"platform_type": "ios",
		"user_id":       "alice",
	}
	first := doJSON(t, r, http.MethodPost, "/api/v1/notification/register-device", payload)
	if first.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", first.Code)
	}
	firstID := decodeBody(t, first)["device_id"]

	second := doJSON(t, r, http.MethodPost, "/api/v1/notification/register-device", payload)
	if second.Code != http.StatusOK {
		t.Fatalf("second register status = %d, want 200", second.Code)
	}
	if secondID := decodeBody(t, second)["device_id"]; secondID != firstID {
		t.Errorf("device_id changed: %v then %v", firstID, secondID)
	}
}

func TestRegisterDeviceValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"missing token", map[string]any{"platform_type": "ios", "user_id": "alice"}},
		{"missing platform", map[string]any{"device_token": "tok", "user_id": "alice"}},
		{"missing user", map[string]any{"device_token": "tok", "platform_type": "ios"}},
		{"bad platform", map[string]any{"device_token": "tok", "platform_type": "windows", "user_id": "alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/notification/register-device", tt.payload)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if body := decodeBody(t, w); body["success"] != false {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestUnregisterDevice(t *testing.T) {
	r, store := newTestRouter(t)
	store.UpsertDevice(context.Background(), "tok-1", models.PlatformAndroid, "alice")

	w := doJSON(t, r, http.MethodPost, "/api/v1/notification/unregister-device", map[string]any{
		"device_token": "tok-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if store.devices["tok-1"].Active {
		t.Error("device still active")
	}
}

func TestUnregisterDeviceUnknownToken(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/notification/unregister-device", map[string]any{
		"device_token": "missing",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUnregisterDeviceMissingToken(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/notification/unregister-device", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestChannelCRUD(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/notification/channels", map[string]any{
		"name":         "team-slack",
		"channel_type": "slack",
		"config":       map[string]any{"webhook_url": "https://hooks.slack.test/x"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decodeBody(t, w)
	if created["channel_type"] != "slack" {
		t.Errorf("created = %v", created)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/notification/channels/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/v1/notification/channels/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/notification/channels/99", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing channel status = %d, want 404", w.Code)
	}
}

func TestCreateChannelInvalidKind(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/notification/channels", map[string]any{
		"name":         "x",
		"channel_type": "telegram",
		"config":       map[string]any{},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateChannelStoresConfigVerbatim(t *testing.T) {
	r, store := newTestRouter(t)

	// Config documents are persisted as given; required keys are only
	// checked at send time.
	w := doJSON(t, r, http.MethodPost, "/api/v1/notification/channels", map[string]any{
		"name":         "half-configured",
		"channel_type": "sms",
		"config":       map[string]any{"api_url": "https://sms.test"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(store.channels[1].Config), &cfg); err != nil {
		t.Fatalf("stored config is not JSON: %v", err)
	}
	if cfg["api_url"] != "https://sms.test" {
		t.Errorf("stored config = %v", cfg)
	}
}

func TestSubscriptionCRUD(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/notification/subscriptions", map[string]any{
		"user_id":    "alice",
		"dag_id":     "etl_daily",
		"event_type": "task_failed",
		"channel_id": 1,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/notification/subscriptions/user/alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var subs []models.Subscription
	if err := json.Unmarshal(w.Body.Bytes(), &subs); err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || subs[0].DagID != "etl_daily" {
		t.Errorf("subs = %+v", subs)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/notification/subscriptions", map[string]any{
		"user_id":    "alice",
		"dag_id":     "etl_daily",
		"event_type": "task_started",
		"channel_id": 1,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid event_type status = %d, want 400", w.Code)
	}
}

func TestTemplateCRUD(t *testing.T) {
	r, store := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/notification/templates", map[string]any{
		"name":             "slack_task_failed",
		"event_type":       "task_failed",
		"channel_type":     "slack",
		"template_content": "Task {{ task_id }} failed",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	if store.templates[1].Body != "Task {{ task_id }} failed" {
		t.Errorf("stored template = %+v", store.templates[1])
	}

	w = doJSON(t, r, http.MethodDelete, "/api/v1/notification/templates/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if store.templates[1].Active {
		t.Error("template still active after delete")
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
