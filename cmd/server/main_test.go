package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/aidoctor/internal/config"
	"github.com/Skufu/aidoctor/internal/diseases"
	"github.com/Skufu/aidoctor/internal/patients"
)

type fakeDB struct {
	err error
}

func (f fakeDB) Ping(ctx context.Context) error {
	return f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:             "8080",
		GinMode:          gin.TestMode,
		ModelPath:        filepath.Join("testdata", "doctor_model.json"),
		FeaturesPath:     filepath.Join("testdata", "feature_names.json"),
		DiseaseTablePath: filepath.Join("testdata", "medical_data.csv"),
		PatientLogPath:   filepath.Join(t.TempDir(), "patient_records.xlsx"),
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	cfg := testConfig(t)

	a, err := newApp(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return setupRouter(a.handler, a.db, log), cfg
}

func TestRouterHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	router := setupRouter(nil, fakeDB{}, log)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRouterReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()

	tests := []struct {
		name string
		db   HealthChecker
		code int
		body string
	}{
		{name: "db disabled", db: nil, code: http.StatusOK, body: `"db":"disabled"`},
		{name: "db healthy", db: fakeDB{}, code: http.StatusOK, body: `"db":"ok"`},
		{name: "db down", db: fakeDB{err: errors.New("connection refused")}, code: http.StatusServiceUnavailable, body: "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(nil, tt.db, log)
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/readyz", nil)
			router.ServeHTTP(w, req)

			require.Equal(t, tt.code, w.Code)
			require.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	router := setupRouter(nil, nil, log)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(w, req)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	router.ServeHTTP(w, req)
	require.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

// Ensure limitBodySize middleware allows small payloads and blocks large ones.
func TestLimitBodySize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limitBodySize(10))
	router.POST("/echo", func(c *gin.Context) {
		_, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too large"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/echo", strings.NewReader("12345"))
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/echo", strings.NewReader("01234567890"))
		router.ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", w.Code)
		}
	})
}

func TestNewAppFailsOnMissingArtifacts(t *testing.T) {
	log, _ := test.NewNullLogger()

	tests := []struct {
		name   string
		mutate func(c *config.Config)
		want   string
	}{
		{name: "schema", mutate: func(c *config.Config) { c.FeaturesPath = "testdata/missing.json" }, want: "feature schema"},
		{name: "model", mutate: func(c *config.Config) { c.ModelPath = "testdata/missing.json" }, want: "load model"},
		{name: "table", mutate: func(c *config.Config) { c.DiseaseTablePath = "testdata/missing.csv" }, want: "disease table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := newApp(context.Background(), cfg, log)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDiagnoseEndToEnd(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name     string
		symptoms string
		disease  string
		found    bool
		medicine string
	}{
		{name: "table hit", symptoms: `["itching", "skin_rash"]`, disease: "Fungal infection", found: true, medicine: "Antifungal cream"},
		{name: "blank medicine", symptoms: `["acidity"]`, disease: "GERD", found: true, medicine: diseases.NoMedicine},
		{name: "not in table", symptoms: `["cough"]`, disease: "Common Cold", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("POST", "/api/diagnose", strings.NewReader(`{"symptoms": `+tt.symptoms+`}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var res struct {
				Disease string `json:"disease"`
				Advice  struct {
					Found    bool   `json:"found"`
					Medicine string `json:"medicine"`
					Message  string `json:"message"`
				} `json:"advice"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			require.Equal(t, tt.disease, res.Disease)
			require.Equal(t, tt.found, res.Advice.Found)
			if tt.found {
				require.Equal(t, tt.medicine, res.Advice.Medicine)
			} else {
				require.Equal(t, diseases.Advisory, res.Advice.Message)
			}
		})
	}
}

func TestPatientFormWritesWorkbook(t *testing.T) {
	router, cfg := newTestRouter(t)

	for _, name := range []string{"Asha", "Ravi"} {
		w := httptest.NewRecorder()
		form := url.Values{"name": {name}, "age": {"40"}, "gender": {"Other"}, "country": {"India"}}
		req, _ := http.NewRequest("POST", "/patient", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	records, err := patients.NewWorkbook(cfg.PatientLogPath).List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []patients.Record{
		{Name: "Asha", Age: 40, Gender: "Other", Country: "India"},
		{Name: "Ravi", Age: 40, Gender: "Other", Country: "India"},
	}, records)
}

func TestPatientFormBlankAgeWritesDefault(t *testing.T) {
	router, cfg := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/patient", strings.NewReader("name=Asha&age="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	records, err := patients.NewWorkbook(cfg.PatientLogPath).List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []patients.Record{{Name: "Asha", Age: patients.DefaultAge, Gender: "Male"}}, records)
}

func TestCreatePatientValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/patients", strings.NewReader(`{
		"name": "",
		"age": 30
	}`))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for validation failure, got %d", w.Code)
	}
	body := strings.ToLower(w.Body.String())
	if !strings.Contains(body, "validation_failed") || !strings.Contains(body, "patient name") {
		t.Fatalf("expected validation error response, got %s", w.Body.String())
	}
}
