package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"roomsync/services/session"
	"roomsync/services/uploader"

	"github.com/gin-gonic/gin"
)

type fakeSync struct {
	err     error
	last    *uploader.CycleResult
	running bool
	calls   int
}

func (f *fakeSync) RunCycle(ctx context.Context) (uploader.CycleResult, error) {
	f.calls++
	if f.err != nil {
		return uploader.CycleResult{}, f.err
	}
	return uploader.CycleResult{ID: "cycle-1", Pushed: true, Uploads: 2}, nil
}

func (f *fakeSync) LastResult() (uploader.CycleResult, bool) {
	if f.last == nil {
		return uploader.CycleResult{}, false
	}
	return *f.last, true
}

func (f *fakeSync) Running() bool { return f.running }

type fakeStats struct{}

func (fakeStats) Stats() session.Stats { return session.Stats{Logins: 3} }

func newRouter(sync SyncService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	hb := NewHandlerBundle(NewStatusHandler(sync, fakeStats{}))
	r.GET("/health", hb.HealthHandler)
	r.GET("/api/status", hb.GetStatusHandler)
	r.POST("/api/sync", hb.TriggerSyncHandler)
	return r
}

func TestTriggerSync(t *testing.T) {
	sync := &fakeSync{}
	w := httptest.NewRecorder()
	newRouter(sync).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var res uploader.CycleResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.ID != "cycle-1" || res.Uploads != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestTriggerSyncWhileRunning(t *testing.T) {
	sync := &fakeSync{err: uploader.ErrCycleInProgress}
	w := httptest.NewRecorder()
	newRouter(sync).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestGetStatus(t *testing.T) {
	sync := &fakeSync{last: &uploader.CycleResult{ID: "prev"}, running: true}
	w := httptest.NewRecorder()
	newRouter(sync).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Running   bool                 `json:"running"`
		Session   session.Stats        `json:"session"`
		LastCycle uploader.CycleResult `json:"lastCycle"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Running || body.Session.Logins != 3 || body.LastCycle.ID != "prev" {
		t.Errorf("body = %+v", body)
	}
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(&fakeSync{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}
