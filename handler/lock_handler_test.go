package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"main/services"

	"github.com/gin-gonic/gin"
)

func newLockTestRouter(t *testing.T) (*gin.Engine, *services.LockActivityLog) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	activityLog := services.NewLockActivityLog(filepath.Join(t.TempDir(), "lock_activity.json"))
	h := NewLockHandler(nil, activityLog)

	router := gin.New()
	router.POST("/lock", h.Lock)
	router.GET("/lock/activity", h.GetActivity)
	return router, activityLog
}

func TestLockHandlerRecordsEvent(t *testing.T) {
	router, activityLog := newLockTestRouter(t)

	body, _ := json.Marshal(map[string]string{"reason": "inactivity"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/lock", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	t.Logf("Status: %d, body: %s", w.Code, w.Body.String())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	events, err := activityLog.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("log holds %d events, want 1", len(events))
	}
	if events[0].Reason != "inactivity" {
		t.Errorf("event reason = %q, want %q", events[0].Reason, "inactivity")
	}
}

func TestLockHandlerRejectsMissingReason(t *testing.T) {
	router, activityLog := newLockTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/lock", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	events, err := activityLog.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("rejected request still logged %d events", len(events))
	}
}

func TestGetLockActivity(t *testing.T) {
	router, activityLog := newLockTestRouter(t)

	for _, reason := range []string{"manual", "inactivity"} {
		body, _ := json.Marshal(map[string]string{"reason": reason})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/lock", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("lock request failed with status %d", w.Code)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/lock/activity", nil)
	router.ServeHTTP(w, req)

	t.Logf("Status: %d, body: %s", w.Code, w.Body.String())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Data struct {
			Events []struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"events"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if len(resp.Data.Events) != 2 {
		t.Fatalf("response holds %d events, want 2", len(resp.Data.Events))
	}
	if resp.Data.Events[0].Reason != "manual" {
		t.Errorf("events[0].Reason = %q, want %q", resp.Data.Events[0].Reason, "manual")
	}

	// Events reported by the handler match what was persisted.
	persisted, err := activityLog.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(persisted) != 2 {
		t.Errorf("log holds %d events, want 2", len(persisted))
	}
}
