package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/pothole-alert/module/core/domain"
)

func setupRouter(r *Relay) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	r.Register(e.Group(""))
	return e
}

func newRelay() *Relay {
	return NewRelay(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func post(e *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	e.ServeHTTP(w, req)
	return w
}

func TestGetWatch_NoActiveWatch(t *testing.T) {
	e := setupRouter(newRelay())
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/geolocation/watch", nil)
	e.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestGetWatch_Active(t *testing.T) {
	relay := newRelay()
	e := setupRouter(relay)

	id, err := relay.Watch(context.Background(), domain.DefaultWatchOptions(), func(domain.LocationEvent) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/geolocation/watch", nil)
	e.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp watchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.WatchID != string(id) {
		t.Errorf("expected watch id %s, got %s", id, resp.WatchID)
	}
	if !resp.EnableHighAccuracy || resp.Timeout != 10000 || resp.MaximumAge != 3000 {
		t.Errorf("unexpected options %+v", resp)
	}
}

func TestPermission_DefaultsToPrompt(t *testing.T) {
	perm, err := newRelay().RequestPermission(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if perm != domain.PermissionStatePrompt {
		t.Errorf("expected prompt, got %s", perm)
	}
}

func TestPostPermission(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		want     domain.Permission
	}{
		{"granted", `{"state":"granted"}`, http.StatusNoContent, domain.PermissionStateGranted},
		{"denied", `{"state":"denied"}`, http.StatusNoContent, domain.PermissionStateDenied},
		{"unknown state", `{"state":"maybe"}`, http.StatusBadRequest, domain.PermissionStatePrompt},
		{"missing state", `{}`, http.StatusBadRequest, domain.PermissionStatePrompt},
		{"invalid json", `nope`, http.StatusBadRequest, domain.PermissionStatePrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := newRelay()
			w := post(setupRouter(relay), "/geolocation/permission", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			perm, _ := relay.RequestPermission(context.Background())
			if perm != tt.want {
				t.Errorf("expected %s, got %s", tt.want, perm)
			}
		})
	}
}

func TestPostPosition_ForwardsToSink(t *testing.T) {
	relay := newRelay()
	e := setupRouter(relay)

	var got []domain.LocationEvent
	id, _ := relay.Watch(context.Background(), domain.DefaultWatchOptions(), func(ev domain.LocationEvent) {
		got = append(got, ev)
	})

	body := `{"watch_id":"` + string(id) + `","coords":{"latitude":-6.2088,"longitude":106.8456,"accuracy":8},"timestamp":1715003456000}`
	w := post(e, "/geolocation/positions", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if len(got) != 1 || got[0].Position == nil {
		t.Fatalf("expected 1 position event, got %+v", got)
	}
	if got[0].Position.Lon != 106.8456 {
		t.Errorf("expected 106.8456, got %f", got[0].Position.Lon)
	}
	if got[0].Position.Accuracy == nil || *got[0].Position.Accuracy != 8 {
		t.Errorf("expected accuracy 8, got %v", got[0].Position.Accuracy)
	}
}

func TestPostPosition_StaleWatch(t *testing.T) {
	relay := newRelay()
	e := setupRouter(relay)

	calls := 0
	id, _ := relay.Watch(context.Background(), domain.DefaultWatchOptions(), func(domain.LocationEvent) { calls++ })
	_ = relay.ClearWatch(id)

	body := `{"watch_id":"` + string(id) + `","coords":{"latitude":-6.2088,"longitude":106.8456},"timestamp":1715003456000}`
	w := post(e, "/geolocation/positions", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if calls != 0 {
		t.Errorf("expected no events after ClearWatch, got %d", calls)
	}
}

func TestPostPosition_Invalid(t *testing.T) {
	relay := newRelay()
	e := setupRouter(relay)
	id, _ := relay.Watch(context.Background(), domain.DefaultWatchOptions(), func(domain.LocationEvent) {
		t.Fatal("sink should not be called")
	})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing coords", `{"watch_id":"` + string(id) + `","timestamp":1}`},
		{"lat out of range", `{"watch_id":"` + string(id) + `","coords":{"latitude":95,"longitude":0},"timestamp":1}`},
		{"missing timestamp", `{"watch_id":"` + string(id) + `","coords":{"latitude":1,"longitude":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(e, "/geolocation/positions", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestPostError_ForwardsKind(t *testing.T) {
	relay := newRelay()
	e := setupRouter(relay)

	var got []domain.LocationEvent
	id, _ := relay.Watch(context.Background(), domain.DefaultWatchOptions(), func(ev domain.LocationEvent) {
		got = append(got, ev)
	})

	w := post(e, "/geolocation/errors", `{"watch_id":"`+string(id)+`","error":{"code":1,"message":"User denied Geolocation"}}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if len(got) != 1 || got[0].Err == nil {
		t.Fatalf("expected 1 error event, got %+v", got)
	}
	if got[0].Err.Kind != domain.PermissionDenied {
		t.Errorf("expected permission_denied, got %s", got[0].Err.Kind)
	}

	w = post(e, "/geolocation/errors", `{"watch_id":"`+string(id)+`"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without error body, got %d", w.Code)
	}
}
