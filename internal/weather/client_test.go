package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smukkama/weather-monitor/pkg/config"
)

const parisCurrent = `{"coord":{"lat":48.85,"lon":2.35},"main":{"temp":21.5,"humidity":40,"pressure":1015},"weather":[{"main":"Clear"}],"name":"Paris"}`

type fakeProvider struct {
	current    func(w http.ResponseWriter, r *http.Request)
	air        func(w http.ResponseWriter, r *http.Request)
	currentHit int32
	airHit     int32
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/weather":
		atomic.AddInt32(&f.currentHit, 1)
		f.current(w, r)
	case "/air_pollution":
		atomic.AddInt32(&f.airHit, 1)
		f.air(w, r)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, f *fakeProvider) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewClient(config.WeatherConfig{APIKey: "test-key", BaseURL: srv.URL, Timeout: 2 * time.Second}, nil)
}

func writeBody(body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestFetch_Success(t *testing.T) {
	f := &fakeProvider{
		current: func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("q") != "Paris" || q.Get("appid") != "test-key" || q.Get("units") != "metric" {
				t.Errorf("Unexpected current weather query: %s", r.URL.RawQuery)
			}
			writeBody(parisCurrent)(w, r)
		},
		air: func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("lat") != "48.85" || q.Get("lon") != "2.35" {
				t.Errorf("Unexpected air quality query: %s", r.URL.RawQuery)
			}
			writeBody(`{"list":[{"main":{"aqi":3}}]}`)(w, r)
		},
	}
	client := newTestClient(t, f)

	reading, err := client.Fetch(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if reading.City != "Paris" || reading.Temperature != 21.5 || reading.Humidity != 40 || reading.Pressure != 1015 {
		t.Errorf("Unexpected reading: %+v", reading)
	}
	if reading.Condition != "Clear" {
		t.Errorf("Expected Clear, got %s", reading.Condition)
	}
	if reading.AQI == nil || *reading.AQI != 3 {
		t.Errorf("Expected AQI 3, got %v", reading.AQI)
	}
	if reading.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
}

func TestFetch_EmptyAirQualityList(t *testing.T) {
	f := &fakeProvider{
		current: writeBody(parisCurrent),
		air:     writeBody(`{"list":[]}`),
	}
	client := newTestClient(t, f)

	reading, err := client.Fetch(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if reading.AQI != nil {
		t.Errorf("Expected no AQI, got %d", *reading.AQI)
	}
}

func TestFetch_CurrentFailureSkipsAirQuality(t *testing.T) {
	f := &fakeProvider{
		current: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
		},
		air: writeBody(`{"list":[]}`),
	}
	client := newTestClient(t, f)

	_, err := client.Fetch(context.Background(), "Atlantis")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if ue.City != "Atlantis" || ue.Op != OpCurrent || ue.StatusCode != http.StatusNotFound {
		t.Errorf("Unexpected error fields: %+v", ue)
	}
	if hits := atomic.LoadInt32(&f.airHit); hits != 0 {
		t.Errorf("Air quality endpoint should not be called, got %d hits", hits)
	}
}

func TestFetch_MalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing coord", `{"main":{"temp":1,"humidity":2,"pressure":3},"weather":[{"main":"Rain"}]}`},
		{"missing main", `{"coord":{"lat":1,"lon":2},"weather":[{"main":"Rain"}]}`},
		{"empty weather", `{"coord":{"lat":1,"lon":2},"main":{"temp":1,"humidity":2,"pressure":3},"weather":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeProvider{current: writeBody(tt.body), air: writeBody(`{"list":[]}`)}
			client := newTestClient(t, f)

			_, err := client.Fetch(context.Background(), "Paris")

			var ue *UpstreamError
			if !errors.As(err, &ue) {
				t.Fatalf("Expected UpstreamError, got %v", err)
			}
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("Expected ErrMalformedPayload, got %v", err)
			}
			if f.airHit != 0 {
				t.Error("Air quality endpoint should not be called")
			}
		})
	}
}

func TestFetch_AirQualityFailure(t *testing.T) {
	f := &fakeProvider{
		current: writeBody(parisCurrent),
		air: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	}
	client := newTestClient(t, f)

	_, err := client.Fetch(context.Background(), "Paris")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if ue.Op != OpAirQuality || ue.StatusCode != http.StatusUnauthorized {
		t.Errorf("Unexpected error fields: %+v", ue)
	}
}

func TestFetch_CircuitOpensOnServerErrors(t *testing.T) {
	f := &fakeProvider{
		current: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		air: writeBody(`{"list":[]}`),
	}
	client := newTestClient(t, f)

	for i := 0; i < 8; i++ {
		_, err := client.Fetch(context.Background(), "Paris")
		var ue *UpstreamError
		if !errors.As(err, &ue) {
			t.Fatalf("attempt %d: expected UpstreamError, got %v", i, err)
		}
	}

	if hits := atomic.LoadInt32(&f.currentHit); hits != 5 {
		t.Errorf("Expected breaker to stop requests after 5 failures, got %d hits", hits)
	}

	_, err := client.Fetch(context.Background(), "Paris")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
}
