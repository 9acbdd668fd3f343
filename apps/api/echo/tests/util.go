package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/apps/shared"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
	"github.com/trezcool/gradebook/core/setup"
	locksvc "github.com/trezcool/gradebook/services/locker"
	logsvc "github.com/trezcool/gradebook/services/logger"
	inmemdb "github.com/trezcool/gradebook/storage/database/inmem"
	testutil "github.com/trezcool/gradebook/tests"
)

const secretKey = "test-secret"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app       *Server
	db        *inmemdb.DB
	roster    testRoster
	scales    *grading.Service
	instances *instance.Service
	logger    *logsvc.MemoryLogger
}

type testRoster interface {
	results.Roster
	testutil.Roster
}

func newEnv(t *testing.T) env {
	t.Helper()

	conf := &core.Config{
		AppName:   "Gradebook",
		TestMode:  true,
		SecretKey: secretKey,
		Server:    core.ServerConfig{MaxUploadSize: "2M"},
	}
	logger := logsvc.NewMemoryLogger()

	validate, translator := shared.NewValidator()

	db := inmemdb.NewDB()
	roster := inmemdb.NewRoster(db)
	gradingSvc := grading.NewService(inmemdb.NewScaleRepository(db), db, logger)
	instanceSvc := instance.NewService(inmemdb.NewInstanceRepository(db), logger)
	resultSvc := results.NewService(results.ServiceDeps{
		Repo:     inmemdb.NewResultRepository(db),
		Roster:   roster,
		Scales:   gradingSvc,
		Tx:       db,
		Locker:   locksvc.NewMemoryLocker(),
		Logger:   logger,
		Validate: validate,
	})
	setupSvc := setup.NewService(inmemdb.NewSessionRepository(db), instanceSvc, validate, logger)

	app := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		GradingSvc:  gradingSvc,
		ResultSvc:   resultSvc,
		InstanceSvc: instanceSvc,
		SetupSvc:    setupSvc,
		Validate:    validate,
		Translator:  translator,
	})
	return env{app: app, db: db, roster: roster, scales: gradingSvc, instances: instanceSvc, logger: logger}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest sends file as the multipart "file" field along fields.
func newUploadRequest(t *testing.T, path, token, filename string, file []byte, fields map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, schoolID string) string {
	token, err := GenerateToken(secretKey, NewClaims(schoolID, "staff-1", time.Hour))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
