package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/tathmini/apps/api/echo"
	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/person"
	"github.com/trezcool/tathmini/core/review"
	"github.com/trezcool/tathmini/core/rubric"
	emailsvc "github.com/trezcool/tathmini/services/email"
	logsvc "github.com/trezcool/tathmini/services/logger"
	dummydb "github.com/trezcool/tathmini/storage/database/dummy"
)

var (
	ctx = context.Background()

	personRepo person.Repository
	reviewSvc  review.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

const adminPwd = "s3cret!"

func setup(t *testing.T) Server {
	core.Conf.Debug = false
	core.Conf.TestMode = true
	core.Conf.AdminPassword = adminPwd
	core.Conf.AdminPasswordHash = ""

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup(): %v", err)
	}
	personRepo = dummydb.NewPersonRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock()
	personSvc := person.NewService(personRepo)
	reviewSvc = review.NewService(db, dummydb.NewReviewRepository(db), personRepo, rubric.Default, mailSvc)

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), core.Conf)
	logger.Enable(false)

	return NewServer(
		ServerDeps{
			Logger:         logger,
			PersonSvc:      personSvc,
			ReviewSvc:      reviewSvc,
			DisableReqLogs: true,
		},
	)
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

func getToken(t *testing.T) string {
	token, err := GenerateToken(GetAdminClaims())
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func createPerson(t *testing.T, name, role, email string, isActive bool) person.Person {
	now := time.Now().UTC()
	p, err := personRepo.CreatePerson(ctx, person.Person{
		Name:      name,
		Role:      role,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createPerson(): %v", err)
	}
	return p
}

func createActivePeriod(t *testing.T, name string) review.Period {
	p, err := reviewSvc.CreatePeriod(ctx, review.NewPeriod{
		Name:      name,
		StartDate: "2026-01-01",
		EndDate:   "2026-01-31",
	})
	if err != nil {
		t.Fatalf("createActivePeriod(): %v", err)
	}
	act, err := reviewSvc.ActivatePeriod(ctx, p.ID)
	if err != nil {
		t.Fatalf("createActivePeriod(): %v", err)
	}
	return act.Period
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
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
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
