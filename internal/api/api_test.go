package api

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/andresuchdata/restock-advisor/internal/inference"
	"github.com/andresuchdata/restock-advisor/internal/repository"
	"github.com/andresuchdata/restock-advisor/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureDir = "../inference/testdata"

func init() {
	gin.SetMode(gin.TestMode)
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return &t
}

func testRouter(t *testing.T, artifactDir string) *gin.Engine {
	t.Helper()
	records := []domain.InventoryRecord{
		{FacilityID: "F02", ItemName: "ORS sachets", StockLevel: 40, ReorderLevel: 25, LastRestockDate: day(2024, 2, 10)},
		{FacilityID: "F01", ItemName: "Measles vaccine", StockLevel: 12, ReorderLevel: 20, LastRestockDate: day(2024, 1, 15)},
		{FacilityID: "F01", ItemName: "Surgical gloves", StockLevel: 300, ReorderLevel: 100},
		{FacilityID: "F01", ItemName: "Gloves/masks kit", StockLevel: 5, ReorderLevel: 2, LastRestockDate: day(2024, 2, 1)},
		{FacilityID: "F77", ItemName: "Stethoscope", StockLevel: 1, ReorderLevel: 1, LastRestockDate: day(2024, 2, 1)},
	}
	catalog := service.NewCatalogServiceFromRecords(records, 50)

	facilities := repository.NewCSVSource("", fixtureDir+"/facility_features.csv")
	provider := inference.NewCachedProvider(inference.NewArtifactLoader(inference.DefaultArtifactPaths(artifactDir), facilities))
	now := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local) }
	predictor := inference.NewPredictor(provider, inference.WithClock(now))

	return NewRouter(&Services{
		Catalog:    catalog,
		Prediction: service.NewPredictionService(predictor),
		Artifacts:  provider,
	}, nil)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestIndexListsFacilities(t *testing.T) {
	router := testRouter(t, fixtureDir)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<option value="F01">F01</option>`)
	assert.Less(t, strings.Index(body, `value="F01"`), strings.Index(body, `value="F02"`))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestGetItems(t *testing.T) {
	router := testRouter(t, fixtureDir)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/items/F01", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []domain.ItemSummary `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "Measles vaccine", resp.Items[0].ItemName)
	assert.Equal(t, "2024-01-15", resp.Items[0].LastRestockDate)
	assert.Equal(t, "", resp.Items[1].LastRestockDate)
}

func TestGetItemsUnknownFacility(t *testing.T) {
	router := testRouter(t, fixtureDir)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/items/F99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"No items found for F99"}`, w.Body.String())
}

func TestGetItemDetails(t *testing.T) {
	router := testRouter(t, fixtureDir)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/item-details/F01/Measles%20vaccine", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"stock_level":12,"reorder_level":20,"last_restock_date":"2024-01-15"}`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/item-details/F01/Surgical%20gloves", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"stock_level":300,"reorder_level":100,"last_restock_date":"2024-01-01"}`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/item-details/F01/Gloves%2Fmasks%20kit", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stock_level":5`)
}

func TestGetItemDetailsNotFound(t *testing.T) {
	router := testRouter(t, fixtureDir)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/item-details/F02/Measles%20vaccine", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Item not found"}`, w.Body.String())
}

func TestPredictRendersResult(t *testing.T) {
	router := testRouter(t, fixtureDir)

	w := serve(router, postForm(url.Values{
		"facility_id":         {"F01"},
		"item_name":           {"Measles vaccine"},
		"current_stock_level": {"12"},
		"reorder_level":       {"20"},
		"last_restock_date":   {"2024-01-15"},
	}))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<dd id="probability">73.11%</dd>`)
	assert.Contains(t, body, `<dd id="days-until-stockout">13.0</dd>`)
	assert.Contains(t, body, `<dd id="risk-level">High</dd>`)
	assert.Contains(t, body, `<option value="F01" selected>F01</option>`)
	assert.Contains(t, body, `value="2024-01-15"`)
}

func TestPredictRendersFixedErrors(t *testing.T) {
	tests := []struct {
		name   string
		form   url.Values
		status int
		reason domain.FailureReason
	}{
		{
			name:   "non-numeric stock",
			form:   url.Values{"facility_id": {"F01"}, "item_name": {"Gloves"}, "current_stock_level": {"lots"}, "reorder_level": {"5"}, "last_restock_date": {"2024-01-01"}},
			status: http.StatusBadRequest,
			reason: domain.ReasonInvalidInput,
		},
		{
			name:   "bad date",
			form:   url.Values{"facility_id": {"F01"}, "item_name": {"Gloves"}, "current_stock_level": {"1"}, "reorder_level": {"5"}, "last_restock_date": {"soon"}},
			status: http.StatusBadRequest,
			reason: domain.ReasonInvalidDate,
		},
		{
			name:   "unknown facility",
			form:   url.Values{"facility_id": {"F77"}, "item_name": {"Stethoscope"}, "current_stock_level": {"1"}, "reorder_level": {"1"}, "last_restock_date": {"2024-02-01"}},
			status: http.StatusNotFound,
			reason: domain.ReasonFacilityNotFound,
		},
		{
			name:   "unseen category",
			form:   url.Values{"facility_id": {"F01"}, "item_name": {"Diesel generator"}, "current_stock_level": {"1"}, "reorder_level": {"1"}, "last_restock_date": {"2024-02-01"}},
			status: http.StatusBadRequest,
			reason: domain.ReasonUnknownCategory,
		},
	}

	router := testRouter(t, fixtureDir)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, postForm(tt.form))
			assert.Equal(t, tt.status, w.Code)
			body := w.Body.String()
			assert.Contains(t, body, template.HTMLEscapeString(tt.reason.Message()))
			assert.Contains(t, body, `value="`+tt.form.Get("current_stock_level")+`"`)
			assert.NotContains(t, body, `id="probability"`)
		})
	}
}

func TestPredictModelUnavailable(t *testing.T) {
	router := testRouter(t, t.TempDir())

	w := serve(router, postForm(url.Values{
		"facility_id":         {"F01"},
		"item_name":           {"Measles vaccine"},
		"current_stock_level": {"12"},
		"reorder_level":       {"20"},
		"last_restock_date":   {"2024-01-15"},
	}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), template.HTMLEscapeString(domain.ReasonModelUnavailable.Message()))
	assert.NotContains(t, w.Body.String(), "no such file")
}

func TestHealth(t *testing.T) {
	w := serve(testRouter(t, fixtureDir), httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Len(t, resp["artifact_version"], 12)

	w = serve(testRouter(t, t.TempDir()), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReloadArtifacts(t *testing.T) {
	w := serve(testRouter(t, fixtureDir), httptest.NewRequest(http.MethodPost, "/admin/artifacts/reload", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"reloaded"`)

	w = serve(testRouter(t, t.TempDir()), httptest.NewRequest(http.MethodPost, "/admin/artifacts/reload", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStaticAssets(t *testing.T) {
	w := serve(testRouter(t, fixtureDir), httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/item-details/")
}

func TestRequestIDIsPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "0b0e7bd6-7f57-4c0e-9a43-9c1d1a1b9f10")

	w := serve(NewRouter(nil, nil), req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0b0e7bd6-7f57-4c0e-9a43-9c1d1a1b9f10", w.Header().Get("X-Request-Id"))
}

func corsRequest(router *gin.Engine, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", origin)
	return serve(router, req)
}

func TestCORSWildcardNeverAllowsCredentials(t *testing.T) {
	w := corsRequest(NewRouter(nil, []string{"*"}), "http://evil.test")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSListedOriginsAllowCredentials(t *testing.T) {
	router := NewRouter(nil, []string{"http://localhost:8080"})

	w := corsRequest(router, "http://localhost:8080")
	assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = corsRequest(router, "http://evil.test")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)
	assert.False(t, all)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
