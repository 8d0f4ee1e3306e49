package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"modeldemos/apps"
	"modeldemos/apps/apptest"
	"modeldemos/db"
	"modeldemos/monitoring"
)

type memoryStore struct {
	mu     sync.Mutex
	events []apps.Event
}

func (s *memoryStore) Record(_ context.Context, e apps.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *memoryStore) Query(_ context.Context, app string, limit int) ([]db.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.Entry
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if e := s.events[i]; e.App == app {
			out = append(out, db.Entry{RequestID: e.ID, App: e.App, Inputs: e.Inputs, Error: e.Error})
		}
	}
	return out, nil
}

func (s *memoryStore) Count(_ context.Context, app string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.App == app {
			n++
		}
	}
	return n, nil
}

type recordingFeed struct {
	mu     sync.Mutex
	events []apps.Event
}

func (f *recordingFeed) Publish(e apps.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *recordingFeed) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}

type fixture struct {
	handler http.Handler
	store   *memoryStore
	feed    *recordingFeed
	metrics *monitoring.MetricsCollector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	apptest.WriteArtifacts(t, root)
	registry, err := apps.Load(root, apps.Definitions(), nil, zap.NewNop())
	require.NoError(t, err)
	history, err := apps.NewHistory(10, registry.Names())
	require.NoError(t, err)

	f := &fixture{store: &memoryStore{}, feed: &recordingFeed{}, metrics: monitoring.NewMetricsCollector()}
	f.handler, err = NewHandler(DefaultServerConfig(), Deps{
		Registry: registry,
		History:  history,
		Store:    f.store,
		Feed:     f.feed,
		Metrics:  f.metrics,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func houseForm() url.Values {
	return url.Values{
		"bedrooms": {"3"}, "bathrooms": {"2.0"}, "sqft_living": {"1500"}, "floors": {"1.0"},
		"waterfront": {"0"}, "view": {"0"}, "condition": {"3"}, "grade": {"7"},
		"sqft_above": {"1200"}, "sqft_basement": {"300"}, "yr_built": {"2000"},
		"yr_renovated": {"0"}, "year": {"2015"}, "month": {"6"}, "day": {"15"},
	}
}

func TestHealthHandler(t *testing.T) {
	f := newFixture(t)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	var body struct {
		Status string   `json:"status"`
		Apps   []string `json:"apps"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Len(t, body.Apps, 5)
}

func TestIndexAndForm(t *testing.T) {
	f := newFixture(t)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `href="/apps/jellyfish"`)

	rr = f.do(httptest.NewRequest(http.MethodGet, "/apps/house", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `name="sqft_living"`)
	assert.Contains(t, body, `value="1500"`)
	assert.NotContains(t, body, "multipart/form-data")

	rr = f.do(httptest.NewRequest(http.MethodGet, "/apps/fashion", nil))
	assert.Contains(t, rr.Body.String(), "multipart/form-data")

	rr = f.do(httptest.NewRequest(http.MethodGet, "/apps/boat", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSubmitForm(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/apps/house", strings.NewReader(houseForm().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := f.do(req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Estimated House Price: ₹ 296,558.")
	require.Len(t, f.store.events, 1)
	assert.Equal(t, "house", f.store.events[0].App)
	assert.Equal(t, "3", f.store.events[0].Inputs["bedrooms"])
	require.Len(t, f.feed.events, 1)
}

func TestSubmitFormInputError(t *testing.T) {
	f := newFixture(t)
	values := houseForm()
	values.Set("month", "13")

	req := httptest.NewRequest(http.MethodPost, "/apps/house", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := f.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "must be at most 12")
	// the submitted value is kept in the form
	assert.Contains(t, body, `value="13"`)
	require.Len(t, f.store.events, 1)
	assert.NotEmpty(t, f.store.events[0].Error)
	assert.Nil(t, f.store.events[0].Result)
}

func TestPredictJSON(t *testing.T) {
	f := newFixture(t)
	body := `{"inputs": {"model": "Fiesta", "transmission": "Manual", "fuelType": "Petrol",
		"car_age": 5, "mileage": 0, "tax": 0, "mpg": 0, "engineSize": 0}}`

	req := httptest.NewRequest(http.MethodPost, "/api/apps/car/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := f.do(req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp predictResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "car", resp.Result.App)
	assert.InDelta(t, 14300, resp.Result.Value, 1e-6)
}

func TestPredictJSONErrors(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown app", "/api/apps/boat/predict", `{"inputs": {}}`, http.StatusNotFound},
		{"bad json", "/api/apps/car/predict", `{"inputs":`, http.StatusBadRequest},
		{"bad value type", "/api/apps/car/predict", `{"inputs": {"model": true}}`, http.StatusBadRequest},
		{"missing fields", "/api/apps/car/predict", `{"inputs": {"model": "Fiesta"}}`, http.StatusUnprocessableEntity},
		{"unlisted option", "/api/apps/car/predict", `{"inputs": {"model": "Model T", "transmission": "Manual", "fuelType": "Petrol",
			"car_age": 5, "mileage": 0, "tax": 0, "mpg": 0, "engineSize": 0}}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rr := f.do(req)
			assert.Equal(t, tc.status, rr.Code, rr.Body.String())

			var resp errorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestPredictImageUpload(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "shirt.png")
	require.NoError(t, err)
	_, err = part.Write(apptest.PNG(t, 28, 28))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/apps/fashion/predict", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := f.do(req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp predictResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Result.Probabilities, 10)
	require.Len(t, f.store.events, 1)
	assert.Contains(t, f.store.events[0].Inputs["image"], "bytes>")
}

func TestPredictImageMissingUpload(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/apps/jellyfish", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := f.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Please provide a value for &#34;image&#34;")
}

func TestHistoryEndpoint(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/apps/house", strings.NewReader(houseForm().Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		require.Equal(t, http.StatusOK, f.do(req).Code)
	}

	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/apps/house/history?limit=2", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var memory struct {
		Source string       `json:"source"`
		Events []apps.Event `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&memory))
	assert.Equal(t, "memory", memory.Source)
	assert.Len(t, memory.Events, 2)

	rr = f.do(httptest.NewRequest(http.MethodGet, "/api/apps/house/history?source=db", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var stored struct {
		Source string     `json:"source"`
		Events []db.Entry `json:"events"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&stored))
	assert.Equal(t, "db", stored.Source)
	assert.Len(t, stored.Events, 3)

	assert.Equal(t, http.StatusBadRequest, f.do(httptest.NewRequest(http.MethodGet, "/api/apps/house/history?limit=x", nil)).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(httptest.NewRequest(http.MethodGet, "/api/apps/house/history?source=s3", nil)).Code)
	assert.Equal(t, http.StatusNotFound, f.do(httptest.NewRequest(http.MethodGet, "/api/apps/boat/history", nil)).Code)
}

func TestListApps(t *testing.T) {
	f := newFixture(t)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/apps", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var list []appInfo
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	require.Len(t, list, 5)
	assert.Equal(t, "house", list[0].Name)
	assert.Equal(t, "bedrooms", list[0].Fields[0].Name)
}

func TestMetricsEndpoints(t *testing.T) {
	f := newFixture(t)
	ok := houseForm()
	bad := houseForm()
	bad.Set("month", "13")
	for _, values := range []url.Values{ok, ok, bad} {
		req := httptest.NewRequest(http.MethodPost, "/apps/house", strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		f.do(req)
	}

	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Apps   []monitoring.AppStats `json:"apps"`
		Stored map[string]int        `json:"stored"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, 3, body.Stored["house"])
	assert.Equal(t, 0, body.Stored["car"])
	assert.Len(t, body.Stored, 5)
	require.Len(t, body.Apps, 1)
	assert.Equal(t, "house", body.Apps[0].App)
	assert.EqualValues(t, 3, body.Apps[0].Count)
	assert.EqualValues(t, 2, body.Apps[0].Outcomes[monitoring.OutcomeOK])
	assert.EqualValues(t, 1, body.Apps[0].Outcomes[monitoring.OutcomeRejected])

	rr = f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `modeldemos_predictions_total{app="house",outcome="ok"} 2`)
	assert.Contains(t, rr.Body.String(), `modeldemos_predictions_total{app="house",outcome="rejected"} 1`)
}
