package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/ledctl/internal/command"
	"github.com/sweeney/ledctl/internal/gpio"
	"github.com/sweeney/ledctl/internal/led"
	"github.com/sweeney/ledctl/internal/status"
)

type stillClock struct{}

func (stillClock) Millis() uint32 { return 0 }

// newTestServer starts a server whose commands are applied to a PWM channel
// by a goroutine standing in for the control loop.
func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *gpio.FakeDriver) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Name:            "desk",
		Mode:            "pwm",
		Driver:          "log",
		Pin:             "GPIO18",
		Broker:          "tcp://192.168.1.200:1883",
		HTTPAddr:        ":80",
		FlashIntervalMs: 100,
		FadeIntervalMs:  1,
	}
	tr := status.NewTracker(start, cfg)

	drv := gpio.NewFakeDriver(false)
	ch := led.NewChannel(18, drv, stillClock{}, led.DefaultTiming)
	ch.InitPWM(0)

	requests := make(chan command.Request)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case req := <-requests:
				res := command.Handle(ch, req.Payload)
				tr.RecordCommand(res.Changed, res.Err)
				tr.Update(res.State)
				req.Reply <- res
			case <-done:
				return
			}
		}
	}()

	srv := New(":0", tr, requests, done)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(func() {
		ts.Close()
		close(done)
	})
	return ts, tr, drv
}

func getStatus(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func postCommand(t *testing.T, url, body string) (int, CommandResponse) {
	t.Helper()
	resp, err := http.Post(url+"/command", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /command: %v", err)
	}
	defer resp.Body.Close()

	var cr CommandResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, cr
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(led.State{Pin: 18, Mode: led.ModePWM, Brightness: 40, Target: 40, MaxBrightness: 255})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Name != "desk" {
		t.Errorf("Name: got %q, want desk", sj.Status.Name)
	}
	if sj.Status.LED.Brightness != 40 {
		t.Errorf("LED.Brightness: got %d, want 40", sj.Status.LED.Brightness)
	}
	if sj.Status.LED.Phase != "idle" {
		t.Errorf("LED.Phase: got %q, want idle", sj.Status.LED.Phase)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Config.Driver != "log" {
		t.Errorf("Config.Driver: got %q, want log", sj.Status.Config.Driver)
	}
}

func TestJSONUnknownBeforeReady(t *testing.T) {
	ts, _, _ := newTestServer(t)

	sj := getStatus(t, ts.URL)
	if sj.Status.Ready {
		t.Error("expected Ready=false before the first update")
	}
	if sj.Status.LED.Phase != "UNKNOWN" {
		t.Errorf("LED.Phase: got %q, want UNKNOWN", sj.Status.LED.Phase)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(led.State{Pin: 18, Mode: led.ModePWM, Brightness: 255, Target: 255, MaxBrightness: 255})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "255 / 255 (100%)") {
		t.Errorf("page does not show brightness:\n%s", body)
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestCommandApplied(t *testing.T) {
	ts, _, drv := newTestServer(t)

	code, cr := postCommand(t, ts.URL, `{"op":"brightness","level":128}`)
	if code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", code, cr.Error)
	}
	if !cr.Changed {
		t.Error("expected changed=true")
	}
	if last, _ := drv.Last(); last.Kind != gpio.WriteAnalog || last.Value != int(led.LinearAppearance[128]) {
		t.Errorf("last write: got %+v", last)
	}

	sj := getStatus(t, ts.URL)
	if sj.Status.LED.Brightness != 128 {
		t.Errorf("LED.Brightness: got %d, want 128", sj.Status.LED.Brightness)
	}
	if sj.Status.Counts.Changed != 1 {
		t.Errorf("Counts.Changed: got %d, want 1", sj.Status.Counts.Changed)
	}
}

func TestCommandUnchanged(t *testing.T) {
	ts, _, _ := newTestServer(t)

	code, cr := postCommand(t, ts.URL, `{"op":"fade_to","target":0}`)
	if code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", code)
	}
	if cr.Changed {
		t.Error("fade to the current level should report changed=false")
	}
}

func TestCommandRejected(t *testing.T) {
	ts, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"unknown op", `{"op":"explode"}`},
		{"missing level", `{"op":"brightness"}`},
		{"bad json", `{"op":`},
		{"zero count", `{"op":"flash_on","count":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, cr := postCommand(t, ts.URL, tt.body)
			if code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", code)
			}
			if cr.Error == "" {
				t.Error("expected an error message")
			}
		})
	}

	if got := getStatus(t, ts.URL).Status.Counts.Rejected; got != len(tests) {
		t.Errorf("Counts.Rejected: got %d, want %d", got, len(tests))
	}
}

func TestCommandMethodNotAllowed(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/command")
	if err != nil {
		t.Fatalf("GET /command: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestCommandLoopStopped(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	done := make(chan struct{})
	close(done)
	srv := New(":0", tr, make(chan command.Request), done)
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	code, _ := postCommand(t, ts.URL, `{"op":"on"}`)
	if code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", code)
	}
}

func TestCommandStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad payload", command.ErrMissingField, http.StatusBadRequest},
		{"loop stopped", command.ErrStopped, http.StatusServiceUnavailable},
		{"loop too slow", fmt.Errorf("await command: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"client gone", fmt.Errorf("submit command: %w", context.Canceled), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commandStatus(tt.err); got != tt.want {
				t.Errorf("commandStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
