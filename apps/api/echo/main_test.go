package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/gradewise/gradewise/apps/api/echo"
	"github.com/gradewise/gradewise/core"
	"github.com/gradewise/gradewise/core/grading"
	"github.com/gradewise/gradewise/core/paper"
	inmemdb "github.com/gradewise/gradewise/storage/database/inmem"
	testutil "github.com/gradewise/gradewise/tests"
)

const frontendURL = "http://localhost:8080"

var (
	conf = &core.Config{
		Env:           "TEST",
		TestMode:      true,
		AppName:       "GradeWise",
		SecretKey:     "secret",
		PingMessage:   "pong",
		JWTCookieName: "gw_token",
		Server:        core.ServerConfig{AllowOrigins: []string{frontendURL}},
	}

	paperRepo   paper.Repository
	gradingRepo grading.Repository
	scheduler   *grading.Scheduler

	errUnauthorized = httpErr{Error: "user not authenticated"}
)

// setup builds a server over fresh in-memory stores. Jobs started through it advance by increment every tick.
func setup(t *testing.T, tick time.Duration, increment float64) *Server {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	paperRepo = inmemdb.NewPaperRepository(db)
	gradingRepo = inmemdb.NewGradingRepository(db)

	validate := testutil.NewValidator()
	translator := core.NewTranslator()
	progressor := grading.ProgressorFunc(func(context.Context, grading.Job) (float64, error) {
		return increment, nil
	})
	scheduler = grading.NewScheduler(gradingRepo, progressor, grading.SchedulerConfig{TickInterval: tick}, core.NopLogger{})
	t.Cleanup(scheduler.Stop)

	return NewServer(ServerDeps{
		Conf:       conf,
		Logger:     core.NopLogger{},
		PaperSvc:   paper.NewService(paperRepo, validate, translator),
		GradingSvc: grading.NewService(gradingRepo, paperRepo, scheduler, 30*time.Second, core.NopLogger{}),
		Validate:   validate,
		Translator: translator,
	})
}

type httpErr struct {
	Success bool        `json:"success"`
	Error   interface{} `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
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

func getToken(t *testing.T, id core.Identity, ttl ...time.Duration) string {
	d := time.Hour
	if len(ttl) > 0 {
		d = ttl[0]
	}
	token, err := GenerateToken([]byte(conf.SecretKey), conf.AppName, id, d)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshallObj(t *testing.T, data []byte) map[string]interface{} {
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatalf("unmarshallObj() failed: %v", err)
	}
	return obj
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
