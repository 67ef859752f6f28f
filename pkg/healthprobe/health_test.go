package healthprobe

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func serve(t *testing.T, handler http.HandlerFunc) (int, HealthResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}

	var body HealthResponse
	err := json.NewDecoder(resp.Body).Decode(&body)
	if err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp.StatusCode, body
}

func TestNew(t *testing.T) {
	hc := New(time.Minute)

	if time.Since(hc.startTime) > 1*time.Second {
		t.Errorf("Start time is too old: %v", hc.startTime)
	}

	if hc.ready.Load() {
		t.Error("HealthChecker should not be ready by default")
	}
}

func TestHealth_AlwaysReturnsOK(t *testing.T) {
	hc := New(time.Millisecond)

	status, body := serve(t, hc.Health())
	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}
	if body.Status != "healthy" || body.Uptime == "" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestReady_NotReadyInitially(t *testing.T) {
	hc := New(0)

	status, body := serve(t, hc.Ready())
	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", status, http.StatusServiceUnavailable)
	}
	if body.Status != "not_ready" {
		t.Errorf("Status = %s, want not_ready", body.Status)
	}
}

func TestReady_WithHeartbeat(t *testing.T) {
	hc := New(time.Minute)
	hc.SetReady(true)
	hc.Heartbeat(time.Now())

	status, body := serve(t, hc.Ready())
	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}
	if body.LastCycle == "" {
		t.Error("expected last cycle in response")
	}
}

func TestReady_Stalled(t *testing.T) {
	hc := New(time.Minute)
	hc.SetReady(true)
	hc.Heartbeat(time.Now().Add(-2 * time.Minute))

	status, body := serve(t, hc.Ready())
	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", status, http.StatusServiceUnavailable)
	}
	if body.Status != "stalled" {
		t.Errorf("Status = %s, want stalled", body.Status)
	}
}

func TestReady_NoHeartbeatYet(t *testing.T) {
	hc := New(time.Minute)
	hc.SetReady(true)

	if hc.stalled(time.Now()) {
		t.Error("should not be stalled right after start")
	}
	if !hc.stalled(time.Now().Add(2 * time.Minute)) {
		t.Error("should be stalled when no cycle ran for longer than staleAfter")
	}
}

func TestReady_StateChanges(t *testing.T) {
	hc := New(0)

	hc.SetReady(true)
	if status, _ := serve(t, hc.Ready()); status != http.StatusOK {
		t.Errorf("status = %d after SetReady(true)", status)
	}

	hc.SetReady(false)
	if status, _ := serve(t, hc.Ready()); status != http.StatusServiceUnavailable {
		t.Errorf("status = %d after SetReady(false)", status)
	}
}

func TestHealthChecker_ConcurrentAccess(t *testing.T) {
	hc := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			hc.SetReady(i%2 == 0)
			hc.Heartbeat(time.Now())
		}(i)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			hc.Ready()(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()
}
