package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/academic"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/score"
	"github.com/trezcool/gradebook/core/user"
	emailsvc "github.com/trezcool/gradebook/services/email"
	"github.com/trezcool/gradebook/storage/database/inmem"
	testutil "github.com/trezcool/gradebook/tests"
)

const testPassword = "Gr@debook2024"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	app          *echoapi.Server
	conf         *core.Config
	logger       *testutil.LoggerMock
	mailSvc      *emailsvc.ConsoleServiceMock
	usrRepo      user.Repository
	usrSvc       user.Service
	academicRepo academic.Repository
	scoreRepo    score.Repository
}

func setup(t *testing.T) fixture {
	db := inmem.Open()
	conf := testutil.NewConfig()
	logger := &testutil.LoggerMock{}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrRepo := inmem.NewUserRepository(db)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf, logger)
	academicRepo := inmem.NewAcademicRepository(db)
	academicSvc := academic.NewService(academicRepo, usrSvc)
	scoreRepo := inmem.NewScoreRepository(db)
	scoreSvc := score.NewService(scoreRepo, academicSvc, mailSvc, grading.DefaultScale(), conf, logger)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		UserSvc:     usrSvc,
		AcademicSvc: academicSvc,
		ScoreSvc:    scoreSvc,
		Validate:    validate,
		Translator:  translator,
	})

	return fixture{
		app:          app,
		conf:         conf,
		logger:       logger,
		mailSvc:      mailSvc,
		usrRepo:      usrRepo,
		usrSvc:       usrSvc,
		academicRepo: academicRepo,
		scoreRepo:    scoreRepo,
	}
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

func (fx fixture) getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(fx.conf, echoapi.GetUserClaims(fx.conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (fx fixture) run(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	fx.app.ServeHTTP(rec, req)
	return rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshalList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}
