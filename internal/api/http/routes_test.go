package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/forecast-text-service/internal/store"
	"github.com/i474232898/forecast-text-service/internal/text"
	"github.com/i474232898/forecast-text-service/internal/weather"
	"github.com/i474232898/forecast-text-service/internal/weather/providers"
)

const upstreamPayload = `{
  "latitude": 52.52,
  "longitude": 13.41,
  "timezone": "GMT",
  "hourly": {
    "time": ["2026-10-14T00:00", "2026-10-14T01:00", "2026-10-14T02:00"],
    "temperature_2m": [10.5, 15.2, 20.3],
    "relative_humidity_2m": [50, 65, 70],
    "wind_speed_10m": [5.0, 8.0, 12.0]
  }
}`

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type downPinger struct{}

func (downPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

type testEnv struct {
	app   *fiber.App
	store *store.MemoryStore
}

func newTestEnv(t *testing.T, upstreamURL string) *testEnv {
	t.Helper()

	mem := store.NewMemoryStore()
	provider := providers.NewOpenMeteoProvider(http.DefaultClient, upstreamURL)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, Dependencies{
		Forecasts:           weather.NewService(mem, provider),
		Texts:               text.NewService(mem),
		Health:              mem,
		HistoryDefaultLimit: 20,
	})

	return &testEnv{app: app, store: mem}
}

func upstream(t *testing.T, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// deadUpstream returns the URL of a server that is no longer listening.
func deadUpstream(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func postForecast(t *testing.T, app *fiber.App, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forecasts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, app, req)
}

func getReplace(t *testing.T, app *fiber.App, query string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/texts/replace"+query, nil)
	return do(t, app, req)
}

func decodeMap(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return m
}

func assertEnvelope(t *testing.T, body []byte, status int, label, path string) map[string]any {
	t.Helper()
	m := decodeMap(t, body)
	if got, _ := m["status"].(float64); int(got) != status {
		t.Fatalf("expected envelope status %d, got %v", status, m["status"])
	}
	if m["error"] != label {
		t.Fatalf("expected error %q, got %v", label, m["error"])
	}
	if m["path"] != path {
		t.Fatalf("expected path %q, got %v", path, m["path"])
	}
	if ts, _ := m["timestamp"].(string); ts == "" {
		t.Fatalf("expected a timestamp, got %v", m["timestamp"])
	}
	return m
}

func countForecasts(t *testing.T, s *store.MemoryStore) int {
	t.Helper()
	recs, err := s.ListForecasts(context.Background(), 100)
	if err != nil {
		t.Fatalf("list forecasts: %v", err)
	}
	return len(recs)
}

func TestForecastReturnsMaxima(t *testing.T) {
	env := newTestEnv(t, upstream(t, upstreamPayload))

	status, body := postForecast(t, env.app, `{"addTemprature":true,"addHumidity":true,"addWindSpeed":true}`)
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}

	var got struct {
		Date           string   `json:"date"`
		MaxTemperature *float64 `json:"maxTemperature"`
		MaxHumidity    *float64 `json:"maxHumidity"`
		MaxWindSpeed   *float64 `json:"maxWindSpeed"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !datePattern.MatchString(got.Date) {
		t.Fatalf("expected YYYY-MM-DD date, got %q", got.Date)
	}
	if got.MaxTemperature == nil || *got.MaxTemperature != 20.3 {
		t.Fatalf("expected maxTemperature 20.3, got %v", got.MaxTemperature)
	}
	if got.MaxHumidity == nil || *got.MaxHumidity != 70 {
		t.Fatalf("expected maxHumidity 70, got %v", got.MaxHumidity)
	}
	if got.MaxWindSpeed == nil || *got.MaxWindSpeed != 12 {
		t.Fatalf("expected maxWindSpeed 12, got %v", got.MaxWindSpeed)
	}
	if n := countForecasts(t, env.store); n != 1 {
		t.Fatalf("expected 1 stored forecast, got %d", n)
	}
}

func TestForecastAllFlagsFalse(t *testing.T) {
	env := newTestEnv(t, upstream(t, upstreamPayload))

	status, body := postForecast(t, env.app, `{"addTemprature":false,"addHumidity":false,"addWindSpeed":false}`)
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}

	m := decodeMap(t, body)
	for _, key := range []string{"maxTemperature", "maxHumidity", "maxWindSpeed"} {
		v, ok := m[key]
		if !ok {
			t.Fatalf("expected explicit %s key in %s", key, body)
		}
		if v != nil {
			t.Fatalf("expected %s to be null, got %v", key, v)
		}
	}
	if n := countForecasts(t, env.store); n != 1 {
		t.Fatalf("expected the null summary to be stored, got %d records", n)
	}
}

func TestForecastBadRequests(t *testing.T) {
	env := newTestEnv(t, upstream(t, upstreamPayload))

	cases := []struct {
		name    string
		body    string
		message string
	}{
		{"missing field", `{"addHumidity":true,"addWindSpeed":true}`, "addTemprature: addTemprature field is mandatory"},
		{"null field", `{"addTemprature":true,"addHumidity":null,"addWindSpeed":true}`, "addHumidity: addHumidity field is mandatory"},
		{"malformed json", `{"addTemprature":tru`, ""},
		{"wrong type", `{"addTemprature":"yes","addHumidity":true,"addWindSpeed":true}`, ""},
		{"empty body", ``, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := postForecast(t, env.app, tc.body)
			if status != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, status, body)
			}
			m := assertEnvelope(t, body, http.StatusBadRequest, "Bad Request", "/api/v1/forecasts")
			if tc.message != "" && m["message"] != tc.message {
				t.Fatalf("expected message %q, got %v", tc.message, m["message"])
			}
		})
	}

	if n := countForecasts(t, env.store); n != 0 {
		t.Fatalf("expected nothing stored, got %d records", n)
	}
}

func TestForecastUpstreamFailure(t *testing.T) {
	for name, u := range map[string]string{
		"unreachable": deadUpstream(t),
		"null body":   upstream(t, "null"),
	} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, u)

			status, body := postForecast(t, env.app, `{"addTemprature":true,"addHumidity":true,"addWindSpeed":true}`)
			if status != http.StatusBadGateway {
				t.Fatalf("expected status %d, got %d: %s", http.StatusBadGateway, status, body)
			}
			m := assertEnvelope(t, body, http.StatusBadGateway, "Upstream API Unreachable", "/api/v1/forecasts")
			if m["message"] != "Connection to the upstream is unreachable" {
				t.Fatalf("unexpected message %v", m["message"])
			}
			if n := countForecasts(t, env.store); n != 0 {
				t.Fatalf("expected nothing stored, got %d records", n)
			}
		})
	}
}

func TestReplaceText(t *testing.T) {
	env := newTestEnv(t, upstream(t, upstreamPayload))

	cases := []struct {
		input, want string
	}{
		{"elephant", "*lephan$"},
		{"abc", "*b$"},
		{"hello world", "*ello worl$"},
	}

	for _, tc := range cases {
		status, body := getReplace(t, env.app, "?text="+url.QueryEscape(tc.input))
		if status != http.StatusOK {
			t.Fatalf("%q: expected status %d, got %d: %s", tc.input, http.StatusOK, status, body)
		}
		var got text.Replacement
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.OriginalText != tc.input || got.ReplacedText != tc.want {
			t.Fatalf("%q: expected %q, got %+v", tc.input, tc.want, got)
		}
	}

	recs, err := env.store.ListReplacements(context.Background(), "", 100)
	if err != nil {
		t.Fatalf("list replacements: %v", err)
	}
	if len(recs) != len(cases) {
		t.Fatalf("expected %d stored replacements, got %d", len(cases), len(recs))
	}
	if recs[0].OriginalText != "hello world" {
		t.Fatalf("expected newest record first, got %q", recs[0].OriginalText)
	}
}

func TestReplaceTextTwoCharacters(t *testing.T) {
	env := newTestEnv(t, upstream(t, upstreamPayload))

	status, body := getReplace(t, env.app, "?text=ab")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if len(body) != 0 {
		t.Fatalf("expected empty body, got %q", body)
	}

	recs, _ := env.store.ListReplacements(context.Background(), "", 100)
	if len(recs) != 0 {
		t.Fatalf("expected nothing stored, got %d records", len(recs))
	}
}

func TestReplaceTextBadRequests(t *testing.T) {
	env := newTestEnv(t, upstream(t, upstreamPayload))

	cases := []struct {
		name, query, message string
	}{
		{"one character", "?text=a", "Text length must be at least 2 characters"},
		{"empty", "?text=", "Text length must be at least 2 characters"},
		{"missing", "", "Missing required parameter: text"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := getReplace(t, env.app, tc.query)
			if status != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, status, body)
			}
			m := assertEnvelope(t, body, http.StatusBadRequest, "Bad Request", "/api/v1/texts/replace")
			if m["message"] != tc.message {
				t.Fatalf("expected message %q, got %v", tc.message, m["message"])
			}
		})
	}
}

func TestHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t, upstream(t, upstreamPayload))

	postForecast(t, env.app, `{"addTemprature":true,"addHumidity":false,"addWindSpeed":false}`)
	postForecast(t, env.app, `{"addTemprature":false,"addHumidity":true,"addWindSpeed":false}`)
	getReplace(t, env.app, "?text=elephant")
	getReplace(t, env.app, "?text=abc")
	getReplace(t, env.app, "?text=elephant")

	status, body := do(t, env.app, httptest.NewRequest(http.MethodGet, "/api/v1/forecasts?limit=1", nil))
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}
	var forecasts []weather.ForecastRecord
	if err := json.Unmarshal(body, &forecasts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(forecasts) != 1 {
		t.Fatalf("expected 1 forecast, got %d", len(forecasts))
	}
	if forecasts[0].MaxHumidity == nil || forecasts[0].MaxTemperature != nil {
		t.Fatalf("expected the newest forecast first, got %+v", forecasts[0])
	}

	status, body = do(t, env.app, httptest.NewRequest(http.MethodGet, "/api/v1/texts?originalText=elephant", nil))
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}
	var texts []text.Record
	if err := json.Unmarshal(body, &texts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(texts) != 2 {
		t.Fatalf("expected 2 matching replacements, got %d", len(texts))
	}
	for _, rec := range texts {
		if rec.OriginalText != "elephant" || rec.ID == "" {
			t.Fatalf("unexpected record %+v", rec)
		}
	}

	for _, q := range []string{"?limit=0", "?limit=501", "?limit=ten"} {
		status, body = do(t, env.app, httptest.NewRequest(http.MethodGet, "/api/v1/texts"+q, nil))
		if status != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d: %s", q, http.StatusBadRequest, status, body)
		}
		assertEnvelope(t, body, http.StatusBadRequest, "Bad Request", "/api/v1/texts")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, upstream(t, upstreamPayload))

	status, body := do(t, env.app, httptest.NewRequest(http.MethodGet, "/health", nil))
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	if m := decodeMap(t, body); m["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", m["status"])
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, Dependencies{Health: downPinger{}})

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, status)
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	env := newTestEnv(t, upstream(t, upstreamPayload))

	status, body := do(t, env.app, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))
	if status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, status)
	}
	assertEnvelope(t, body, http.StatusNotFound, "Not Found", "/api/v1/unknown")
}

const leakedCause = "secret dsn password=hunter2"

// brokenStore fails every call with an error that must never reach clients.
type brokenStore struct{}

func (brokenStore) SaveForecast(ctx context.Context, rec weather.ForecastRecord) (string, error) {
	return "", errors.New(leakedCause)
}

func (brokenStore) ListForecasts(ctx context.Context, limit int) ([]weather.ForecastRecord, error) {
	return nil, errors.New(leakedCause)
}

func (brokenStore) SaveReplacement(ctx context.Context, rec text.Record) (string, error) {
	return "", errors.New(leakedCause)
}

func (brokenStore) ListReplacements(ctx context.Context, originalText string, limit int) ([]text.Record, error) {
	return nil, errors.New(leakedCause)
}

func TestStoreFailureIsGenericInternalError(t *testing.T) {
	provider := providers.NewOpenMeteoProvider(http.DefaultClient, upstream(t, upstreamPayload))

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, Dependencies{
		Forecasts: weather.NewService(brokenStore{}, provider),
		Texts:     text.NewService(brokenStore{}),
	})

	cases := []struct {
		name string
		req  func() *http.Request
		path string
	}{
		{"replace text", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/v1/texts/replace?text=elephant", nil)
		}, "/api/v1/texts/replace"},
		{"create forecast", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/forecasts",
				strings.NewReader(`{"addTemprature":true,"addHumidity":true,"addWindSpeed":true}`))
			req.Header.Set("Content-Type", "application/json")
			return req
		}, "/api/v1/forecasts"},
		{"text history", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/v1/texts", nil)
		}, "/api/v1/texts"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, app, tc.req())
			if status != http.StatusInternalServerError {
				t.Fatalf("expected status %d, got %d: %s", http.StatusInternalServerError, status, body)
			}
			m := assertEnvelope(t, body, http.StatusInternalServerError, "Internal Server Error", tc.path)
			if m["message"] != "An unexpected error occurred" {
				t.Fatalf("unexpected message %v", m["message"])
			}
			if strings.Contains(string(body), "hunter2") || strings.Contains(string(body), "save") {
				t.Fatalf("response leaks internal details: %s", body)
			}
		})
	}
}

func TestReplaceTextInvalidUTF8(t *testing.T) {
	env := newTestEnv(t, upstream(t, upstreamPayload))

	status, body := getReplace(t, env.app, "?text=a%FFb%FEc")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}

	recs, err := env.store.ListReplacements(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("list replacements: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 stored replacement, got %d", len(recs))
	}
	if recs[0].OriginalText != "a�b�c" || recs[0].ReplacedText != "*�b�$" {
		t.Fatalf("unexpected stored record %+q / %+q", recs[0].OriginalText, recs[0].ReplacedText)
	}
}
