package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/ledctl/internal/led"
)

func TestRecord(t *testing.T) {
	ch := "test-record"
	defer Delete(ch)

	Record(ch, led.State{Brightness: 40, Target: 200, MaxBrightness: 255, Busy: true})

	if v := testutil.ToFloat64(brightness.WithLabelValues(ch)); v != 40 {
		t.Errorf("brightness = %v, want 40", v)
	}
	if v := testutil.ToFloat64(target.WithLabelValues(ch)); v != 200 {
		t.Errorf("target = %v, want 200", v)
	}
	if v := testutil.ToFloat64(maxBrightness.WithLabelValues(ch)); v != 255 {
		t.Errorf("max_brightness = %v, want 255", v)
	}
	if v := testutil.ToFloat64(busy.WithLabelValues(ch)); v != 1 {
		t.Errorf("busy = %v, want 1", v)
	}

	Record(ch, led.State{Brightness: 200, Target: 200, MaxBrightness: 255})
	if v := testutil.ToFloat64(busy.WithLabelValues(ch)); v != 0 {
		t.Errorf("busy after settle = %v, want 0", v)
	}
}

func TestCommandApplied(t *testing.T) {
	ch := "test-commands"
	defer Delete(ch)

	CommandApplied(ch, "on", true, false)
	CommandApplied(ch, "on", true, false)
	CommandApplied(ch, "on", false, false)
	CommandApplied(ch, "", false, true)

	tests := []struct {
		op, result string
		want       float64
	}{
		{"on", ResultChanged, 2},
		{"on", ResultUnchanged, 1},
		{"unknown", ResultRejected, 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(commands.WithLabelValues(ch, tt.op, tt.result))
		if got != tt.want {
			t.Errorf("commands{op=%s,result=%s} = %v, want %v", tt.op, tt.result, got, tt.want)
		}
	}
}

func TestUpdateCalled(t *testing.T) {
	ch := "test-updates"
	defer Delete(ch)

	for i := 0; i < 5; i++ {
		UpdateCalled(ch)
	}
	if v := testutil.ToFloat64(updates.WithLabelValues(ch)); v != 5 {
		t.Errorf("updates = %v, want 5", v)
	}
}

func TestHandlerExposesSeries(t *testing.T) {
	ch := "test-handler"
	defer Delete(ch)
	Record(ch, led.State{Brightness: 7, Target: 7, MaxBrightness: 255})

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `ledctl_brightness{channel="test-handler"} 7`) {
		t.Errorf("metrics output missing brightness series:\n%s", body)
	}
}
