package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nniahq/portal-api/pkg/logging"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func testLogger() *logging.Logger {
	return logging.NewWithWriter("error", testWriter{})
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func jsonServer(t *testing.T, hits *int32, status int, payload any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.WriteHeader(status)
		if payload != nil {
			_ = json.NewEncoder(w).Encode(payload)
		}
	}))
}

func TestResolveUsesFirstHealthyProvider(t *testing.T) {
	var firstHits, secondHits int32
	first := jsonServer(t, &firstHits, http.StatusServiceUnavailable, nil)
	defer first.Close()
	second := jsonServer(t, &secondHits, http.StatusOK, map[string]string{
		"dateTime": "2024-01-10T12:00:00.1234567",
	})
	defer second.Close()

	clk := &fakeClock{now: time.Date(2024, 1, 10, 13, 0, 0, 0, time.UTC)}
	src := NewSource(SourceConfig{
		Providers: []Provider{
			{Name: "broken", URL: first.URL, Parse: parseField("utc_datetime", time.RFC3339)},
			{Name: "healthy", URL: second.URL, Parse: parseField("dateTime", "2006-01-02T15:04:05")},
		},
		Clock:  clk,
		Logger: testLogger(),
	})

	res := src.Resolve(context.Background())
	if res.Source != SourceRemote {
		t.Fatalf("source = %q, want %q", res.Source, SourceRemote)
	}
	if res.Provider != "healthy" {
		t.Errorf("provider = %q, want healthy", res.Provider)
	}
	want := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	if !res.Instant.Equal(want) {
		t.Errorf("instant = %v, want %v", res.Instant, want)
	}
	if firstHits != 1 || secondHits != 1 {
		t.Errorf("hits = %d/%d, want 1/1", firstHits, secondHits)
	}
}

func TestResolveParsesAllProviderShapes(t *testing.T) {
	cases := []struct {
		name   string
		field  string
		layout string
		value  string
		want   time.Time
	}{
		{"worldtimeapi", "utc_datetime", time.RFC3339, "2024-01-10T09:30:00+00:00", time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)},
		{"timeapi", "dateTime", "2006-01-02T15:04:05", "2024-01-10T09:30:00", time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)},
		{"timezonedb", "formatted", "2006-01-02 15:04:05", "2024-01-10 09:30:00", time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := jsonServer(t, nil, http.StatusOK, map[string]string{tc.field: tc.value})
			defer srv.Close()

			src := NewSource(SourceConfig{
				Providers: []Provider{{Name: tc.name, URL: srv.URL, Parse: parseField(tc.field, tc.layout)}},
				Clock:     &fakeClock{now: time.Now()},
				Logger:    testLogger(),
			})
			res := src.Resolve(context.Background())
			if res.Source != SourceRemote {
				t.Fatalf("source = %q, want remote", res.Source)
			}
			if !res.Instant.Equal(tc.want) {
				t.Errorf("instant = %v, want %v", res.Instant, tc.want)
			}
		})
	}
}

func TestResolveFallsBackToBackend(t *testing.T) {
	broken := jsonServer(t, nil, http.StatusBadGateway, nil)
	defer broken.Close()
	backend := jsonServer(t, nil, http.StatusOK, map[string]any{
		"success": true,
		"date":    "2024-01-10T12:00:00Z",
	})
	defer backend.Close()

	src := NewSource(SourceConfig{
		Providers:   []Provider{{Name: "broken", URL: broken.URL, Parse: parseField("utc_datetime", time.RFC3339)}},
		FallbackURL: backend.URL,
		Clock:       &fakeClock{now: time.Now()},
		Logger:      testLogger(),
	})

	res := src.Resolve(context.Background())
	if res.Source != SourceBackend {
		t.Fatalf("source = %q, want %q", res.Source, SourceBackend)
	}
	want := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	if !res.Instant.Equal(want) {
		t.Errorf("instant = %v, want %v", res.Instant, want)
	}
}

func TestResolveFallsBackToLocalClock(t *testing.T) {
	broken := jsonServer(t, nil, http.StatusInternalServerError, nil)
	defer broken.Close()
	deadBackend := jsonServer(t, nil, http.StatusOK, map[string]any{"success": false})
	defer deadBackend.Close()

	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	src := NewSource(SourceConfig{
		Providers:   []Provider{{Name: "broken", URL: broken.URL, Parse: parseField("utc_datetime", time.RFC3339)}},
		FallbackURL: deadBackend.URL,
		Clock:       &fakeClock{now: now},
		Logger:      testLogger(),
	})

	res := src.Resolve(context.Background())
	if res.Source != SourceLocal {
		t.Fatalf("source = %q, want %q", res.Source, SourceLocal)
	}
	if !res.Instant.Equal(now) {
		t.Errorf("instant = %v, want %v", res.Instant, now)
	}
}

func TestResolveCachesSuccessfulResolutions(t *testing.T) {
	var hits int32
	srv := jsonServer(t, &hits, http.StatusOK, map[string]string{
		"utc_datetime": "2024-01-10T12:00:00Z",
	})
	defer srv.Close()

	clk := &fakeClock{now: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)}
	src := NewSource(SourceConfig{
		Providers: []Provider{{Name: "srv", URL: srv.URL, Parse: parseField("utc_datetime", time.RFC3339)}},
		CacheTTL:  5 * time.Minute,
		Clock:     clk,
		Logger:    testLogger(),
	})

	first := src.Resolve(context.Background())
	clk.Advance(time.Minute)
	second := src.Resolve(context.Background())

	if hits != 1 {
		t.Fatalf("expected 1 upstream request within cache window, got %d", hits)
	}
	if first != second {
		t.Errorf("expected identical cached resolution, got %+v and %+v", first, second)
	}

	// Past the TTL a fresh request is issued.
	clk.Advance(5 * time.Minute)
	_ = src.Resolve(context.Background())
	if hits != 2 {
		t.Fatalf("expected refetch after TTL, got %d hits", hits)
	}
}

func TestLocalFallbackIsNotCached(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"utc_datetime": "2024-01-10T12:00:00Z"})
	}))
	defer srv.Close()

	src := NewSource(SourceConfig{
		Providers: []Provider{{Name: "flaky", URL: srv.URL, Parse: parseField("utc_datetime", time.RFC3339)}},
		Clock:     &fakeClock{now: time.Now()},
		Logger:    testLogger(),
	})

	if res := src.Resolve(context.Background()); res.Source != SourceLocal {
		t.Fatalf("first resolve should fall back to local clock, got %q", res.Source)
	}
	if res := src.Resolve(context.Background()); res.Source != SourceRemote {
		t.Fatalf("second resolve should retry the provider, got %q", res.Source)
	}
}

func TestHandlerGetRealTime(t *testing.T) {
	srv := jsonServer(t, nil, http.StatusOK, map[string]string{
		"utc_datetime": "2024-01-10T12:00:00Z",
	})
	defer srv.Close()

	src := NewSource(SourceConfig{
		Providers: []Provider{{Name: "srv", URL: srv.URL, Parse: parseField("utc_datetime", time.RFC3339)}},
		Clock:     &fakeClock{now: time.Now()},
		Logger:    testLogger(),
	})
	handler := NewHandler(src, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/nnia/real-time", nil)
	rec := httptest.NewRecorder()
	handler.GetRealTime(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Success bool   `json:"success"`
		Date    string `json:"date"`
		Source  string `json:"source"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Errorf("success = false, want true")
	}
	if resp.Date != "2024-01-10T12:00:00Z" {
		t.Errorf("date = %q, want 2024-01-10T12:00:00Z", resp.Date)
	}
	if resp.Source != SourceRemote {
		t.Errorf("source = %q, want %q", resp.Source, SourceRemote)
	}
}
