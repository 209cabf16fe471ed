package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRemote(t *testing.T) {
	c := NewCollector("test")
	c.ObserveRemote("chat", "ok", 200*time.Millisecond)
	c.ObserveRemote("chat", "transient", time.Second)
	c.ObserveRemote("chat", "ok", time.Millisecond)

	if got := testutil.ToFloat64(c.RemoteCalls.WithLabelValues("chat", "ok")); got != 2 {
		t.Errorf("chat ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.RemoteCalls.WithLabelValues("chat", "transient")); got != 1 {
		t.Errorf("chat transient = %v, want 1", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveRemote("chat", "ok", time.Second)
	c.ObserveTurn("message", "ok")
	c.ObservePrediction("0")
	c.ObserveHTTP("GET", "/healthz", "200")
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("medassistant")
	c.ObserveTurn("message", "ok")

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `medassistant_turns_total{kind="message",outcome="ok"} 1`) {
		t.Errorf("turn counter missing from exposition:\n%s", body)
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("x")
	b := NewCollector("x")
	a.ObserveTurn("upload", "ok")

	if got := testutil.ToFloat64(b.Turns.WithLabelValues("upload", "ok")); got != 0 {
		t.Errorf("second collector saw %v turns, want 0", got)
	}
}
