package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/smukkama/weather-monitor/internal/database"
	"github.com/smukkama/weather-monitor/pkg/config"
)

const (
	OpCurrent    = "current"
	OpAirQuality = "air_quality"
)

// UpstreamError reports a failed or unusable provider response.
type UpstreamError struct {
	City       string
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("weather provider %s request for %s failed with status %d: %v", e.Op, e.City, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("weather provider %s request for %s failed: %v", e.Op, e.City, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrBadStatus        = errors.New("unexpected status code")
	ErrCircuitOpen      = errors.New("circuit breaker open")
)

// Client fetches current conditions and air quality from OpenWeatherMap.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	current *gobreaker.CircuitBreaker
	air     *gobreaker.CircuitBreaker
}

func NewClient(cfg config.WeatherConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		current: newBreaker("openweather-current"),
		air:     newBreaker("openweather-air-pollution"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

type currentPayload struct {
	Coord *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main *struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

type airPayload struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
	} `json:"list"`
}

// Fetch returns the current reading for a city. The air quality call uses the
// coordinates from the first call, so a failed first call skips it.
func (c *Client) Fetch(ctx context.Context, city string) (*database.Reading, error) {
	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")

	body, err := c.get(ctx, c.current, "/weather", values)
	if err != nil {
		return nil, upstreamErr(city, OpCurrent, err)
	}

	var current currentPayload
	if err := json.Unmarshal(body, &current); err != nil {
		return nil, &UpstreamError{City: city, Op: OpCurrent, Err: fmt.Errorf("%w: %v", ErrMalformedPayload, err)}
	}
	if current.Coord == nil || current.Main == nil || len(current.Weather) == 0 {
		return nil, &UpstreamError{City: city, Op: OpCurrent, Err: fmt.Errorf("%w: missing coord, main or weather", ErrMalformedPayload)}
	}

	values = url.Values{}
	values.Set("lat", strconv.FormatFloat(current.Coord.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(current.Coord.Lon, 'f', -1, 64))
	values.Set("appid", c.apiKey)

	body, err = c.get(ctx, c.air, "/air_pollution", values)
	if err != nil {
		return nil, upstreamErr(city, OpAirQuality, err)
	}

	var air airPayload
	if err := json.Unmarshal(body, &air); err != nil {
		return nil, &UpstreamError{City: city, Op: OpAirQuality, Err: fmt.Errorf("%w: %v", ErrMalformedPayload, err)}
	}

	reading := &database.Reading{
		City:        city,
		Temperature: current.Main.Temp,
		Humidity:    current.Main.Humidity,
		Pressure:    current.Main.Pressure,
		Condition:   current.Weather[0].Main,
		Timestamp:   time.Now().UTC(),
	}
	if len(air.List) > 0 {
		aqi := air.List[0].Main.AQI
		reading.AQI = &aqi
	}

	return reading, nil
}

// statusError carries a non-2xx status out of the breaker.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v %d: %s", ErrBadStatus, e.code, e.body)
}

func (e *statusError) Unwrap() error {
	return ErrBadStatus
}

type response struct {
	status int
	body   []byte
}

// get performs one request through the breaker. Only transport errors, 429
// and 5xx count as breaker failures.
func (c *Client) get(ctx context.Context, cb *gobreaker.CircuitBreaker, path string, values url.Values) ([]byte, error) {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, values.Encode())

	result, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &statusError{code: resp.StatusCode, body: snippet(body)}
		}
		return response{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}

	res := result.(response)
	if res.status < 200 || res.status >= 300 {
		return nil, &statusError{code: res.status, body: snippet(res.body)}
	}
	return res.body, nil
}

func upstreamErr(city, op string, err error) *UpstreamError {
	ue := &UpstreamError{City: city, Op: op, Err: err}
	var se *statusError
	if errors.As(err, &se) {
		ue.StatusCode = se.code
	}
	return ue
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
