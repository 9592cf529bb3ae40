package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/tathmini/core/person"
	"github.com/trezcool/tathmini/core/review"
)

func Test_adminLogin(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{name: "empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "this field is required"})},
		{name: "wrong password", body: []byte(`{"password": "nope"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"})},
		{name: "ok", body: []byte(`{"password": "` + adminPwd + `"}`), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/admin/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.name == "ok" {
				assert.Equal(t, tt.wantCode, rec.Code)
				var resp struct {
					Token string `json:"token"`
				}
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_adminAPI_authRequired(t *testing.T) {
	app := setup(t)

	paths := []httpTest{
		{method: http.MethodGet, path: "/v1/admin/people"},
		{method: http.MethodPost, path: "/v1/admin/people"},
		{method: http.MethodGet, path: "/v1/admin/periods"},
		{method: http.MethodPost, path: "/v1/admin/periods/lol/activate"},
		{method: http.MethodGet, path: "/v1/admin/periods/lol/reports/lmao"},
	}
	for _, tt := range paths {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			app.ServeHTTP(rec, req)

			tt.wantCode = http.StatusUnauthorized
			tt.wantData = marchallObj(t, errMissingToken)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_adminAPI_people(t *testing.T) {
	app := setup(t)
	token := getToken(t)

	amina := createPerson(t, "Amina Juma", "CEO", "amina@test.cd", true)

	t.Run("create", func(t *testing.T) {
		body := []byte(`{"name": "Baraka Otieno", "role": "CTO", "email": "baraka@test.cd"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/people", token, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var p person.Person
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.NotEmpty(t, p.ID)
		assert.True(t, p.IsActive)
	})

	t.Run("create rejects near-duplicate name", func(t *testing.T) {
		body := []byte(`{"name": "Amina Jumaa", "role": "CFO"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/people", token, body)
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "a person with a similar name is already on the roster"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/people/"+amina.ID, token)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, amina)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("retrieve unknown", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/people/lol", token)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "person not found"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("update", func(t *testing.T) {
		body := []byte(`{"role": "Executive Chair"}`)
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/people/"+amina.ID, token, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var p person.Person
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, "Executive Chair", p.Role)
		assert.Equal(t, amina.Name, p.Name)
	})

	t.Run("deactivate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/admin/people/"+amina.ID, token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/people?is_active=false", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		var people []person.Person
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &people))
		assert.Len(t, people, 1)
		assert.Equal(t, amina.ID, people[0].ID)
	})
}

func Test_adminAPI_periods(t *testing.T) {
	app := setup(t)
	token := getToken(t)

	createPerson(t, "Amina Juma", "CEO", "", true)
	createPerson(t, "Baraka Otieno", "CTO", "", true)
	createPerson(t, "Neema Said", "CFO", "", true)

	var period review.Period

	t.Run("create", func(t *testing.T) {
		body := []byte(`{"name": "Q1 2026", "start_date": "2026-01-01", "end_date": "2026-03-31"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/periods", token, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &period))
		assert.NotEmpty(t, period.ID)
		assert.False(t, period.IsActive)
	})

	t.Run("create rejects inverted dates", func(t *testing.T) {
		body := []byte(`{"name": "Q1 2026", "start_date": "2026-03-31", "end_date": "2026-01-01"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/periods", token, body)
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"end_date": "end date cannot precede start date"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("activate generates assignments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/periods/"+period.ID+"/activate", token)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var act review.Activation
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &act))
		assert.True(t, act.Generated)
		assert.True(t, act.Period.IsActive)
	})

	t.Run("credentials listing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/periods/"+period.ID+"/credentials", token)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var progress []review.CredentialProgress
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
		assert.Len(t, progress, 3)
		for _, cp := range progress {
			assert.Equal(t, 2, cp.TotalCount)
		}
	})

	t.Run("stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/periods/"+period.ID+"/stats", token)
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, review.CompletionStats{
				TotalObligations: 6,
				TotalCredentials: 3,
			}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("report before any submission", func(t *testing.T) {
		people, err := reviewSvc.CredentialProgress(ctx, period.ID)
		assert.NoError(t, err)

		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/periods/"+period.ID+"/reports/"+people[0].EvaluatorID, token)
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "no completed evaluations for this person in this period"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("deactivate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/periods/"+period.ID+"/deactivate", token)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var p review.Period
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.False(t, p.IsActive)
	})
}
