// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package collector

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gps_simulator/internal/gps"
)

func newTestServer(t *testing.T, svc *Service, timeout time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(svc, RouterOptions{
		RequestTimeout: timeout,
		Logger:         log.New(io.Discard, "", 0),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, submitResponse) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var sr submitResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &sr))
	}
	return resp, sr
}

const t1Body = `{"device_id":"SIM001","latitude":37.7749,"longitude":-122.4194,"timestamp":"2026-10-18T09:29:59.500Z"}`

func TestPostThenHistory(t *testing.T) {
	srv := newTestServer(t, newTestService(fixedFaults(0, 0.5), nil), time.Second)

	resp, sr := post(t, srv.URL+"/api/gps?simulate_issues=false", t1Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", sr.Status)
	assert.Equal(t, 1, sr.StoredEntries)

	hresp, err := http.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	defer hresp.Body.Close()
	assert.Equal(t, http.StatusOK, hresp.StatusCode)

	var hist []gps.Fix
	require.NoError(t, json.NewDecoder(hresp.Body).Decode(&hist))
	require.Len(t, hist, 1)
	assert.Equal(t, "SIM001", hist[0].DeviceID)
	assert.Equal(t, "2026-10-18T09:30:00.000Z", hist[0].Timestamp)
}

func TestEmptyHistoryIsArray(t *testing.T) {
	srv := newTestServer(t, newTestService(fixedFaults(0, 0.5), nil), time.Second)

	resp, err := http.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
}

func TestPostPacketLost(t *testing.T) {
	svc := newTestService(fixedFaults(1, 0.5), nil)
	srv := newTestServer(t, svc, time.Second)

	resp, sr := post(t, srv.URL+"/api/gps?simulate_issues=true", t1Body)
	assert.Equal(t, http.StatusRequestTimeout, resp.StatusCode)
	assert.Equal(t, "packet_lost", sr.Status)
	assert.Empty(t, svc.History())

	// anything but "true" disables faults
	resp, _ = post(t, srv.URL+"/api/gps?simulate_issues=yes", t1Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostMalformed(t *testing.T) {
	svc := newTestService(fixedFaults(0, 0.5), nil)
	srv := newTestServer(t, svc, time.Second)

	for _, body := range []string{
		`not json`,
		`{"device_id":"SIM001","longitude":1}`,
		`{"device_id":"SIM001","latitude":95,"longitude":1}`,
		`{"latitude":1,"longitude":1}`,
	} {
		resp, sr := post(t, srv.URL+"/api/gps", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "invalid", sr.Status, body)
		assert.NotEmpty(t, sr.Error, body)
	}
	assert.Empty(t, svc.History())
}

func TestPostOversizedBody(t *testing.T) {
	svc := newTestService(fixedFaults(0, 0.5), nil)
	srv := newTestServer(t, svc, time.Second)

	body := `{"device_id":"` + strings.Repeat("x", maxSubmitBytes) + `","latitude":1,"longitude":1}`
	resp, sr := post(t, srv.URL+"/api/gps", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "invalid", sr.Status)
	assert.Empty(t, svc.History())
}

func TestPostTimesOut(t *testing.T) {
	faults := &FaultInjector{
		MaxDelay:        time.Hour,
		LossProbability: 0,
		Float64:         func() float64 { return 0.5 },
	}
	svc := newTestService(faults, nil)
	srv := newTestServer(t, svc, 20*time.Millisecond)

	resp, _ := post(t, srv.URL+"/api/gps?simulate_issues=true", t1Body)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.Empty(t, svc.History())
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := newTestServer(t, newTestService(fixedFaults(0, 0.5), nil), time.Second)
	post(t, srv.URL+"/api/gps", t1Body)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "gpssim_fixes_stored_total")
}

func TestViewersRouteMounted(t *testing.T) {
	svc := newTestService(fixedFaults(0, 0.5), nil)
	viewers := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := httptest.NewServer(NewRouter(svc, RouterOptions{Viewers: viewers, Logger: log.New(io.Discard, "", 0)}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(dir+"/index.html", "<h1>map</h1>"))

	svc := newTestService(fixedFaults(0, 0.5), nil)
	srv := httptest.NewServer(NewRouter(svc, RouterOptions{StaticDir: dir, Logger: log.New(io.Discard, "", 0)}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "map")
}

func TestSubmitCancelledRequest(t *testing.T) {
	svc := newTestService(&FaultInjector{MaxDelay: time.Hour, Float64: func() float64 { return 0.5 }}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Submit(ctx, t1(), true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, svc.History())
}

func writeFile(name, content string) error {
	return os.WriteFile(name, []byte(content), 0o644)
}
