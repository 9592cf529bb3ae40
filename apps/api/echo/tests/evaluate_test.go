package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/tathmini/core/review"
	"github.com/trezcool/tathmini/core/rubric"
)

func Test_rubric(t *testing.T) {
	app := setup(t)

	// public, no auth needed
	req, rec := newRequest(http.MethodGet, "/v1/rubric")
	app.ServeHTTP(rec, req)

	tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, rubric.Default)}
	checkCodeAndData(t, tt, rec)
}

func Test_evaluationAPI(t *testing.T) {
	app := setup(t)

	amina := createPerson(t, "Amina Juma", "CEO", "", true)
	baraka := createPerson(t, "Baraka Otieno", "CTO", "", true)
	period := createActivePeriod(t, "Q1 2026")

	progress, err := reviewSvc.CredentialProgress(ctx, period.ID)
	assert.NoError(t, err)
	tokens := make(map[string]string, len(progress)) // evaluatorID -> token
	for _, cp := range progress {
		tokens[cp.EvaluatorID] = cp.Token
	}

	t.Run("worklist", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/evaluate/"+tokens[amina.ID])
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var wl review.Worklist
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wl))
		assert.Equal(t, amina.Name, wl.Evaluator)
		assert.False(t, wl.IsCompleted)
		assert.Len(t, wl.Obligations, 1)
		assert.Equal(t, baraka.Name, wl.Obligations[0].SubjectName)
	})

	t.Run("worklist with bad token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/evaluate/lol")
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "credential not found"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("submit", func(t *testing.T) {
		wl, err := reviewSvc.Worklist(ctx, tokens[amina.ID])
		assert.NoError(t, err)
		obID := wl.Obligations[0].ID

		body := marchallObj(t, review.Submission{
			Responses: []review.ResponseInput{
				{CriterionCode: "D", Score: intPtr(3), Justification: "always delivers"},
				{CriterionCode: "O", Score: intPtr(3)},
				{CriterionCode: "X", Score: intPtr(2)},
				{CriterionCode: "L", Score: intPtr(2)},
			},
			Advice: "delegate more",
		})
		req, rec := newRequest(http.MethodPost, "/v1/evaluate/"+tokens[amina.ID]+"/obligations/"+obID, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var ob review.Obligation
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ob))
		assert.True(t, ob.IsCompleted)

		// with a 2-person roster one submission completes the credential
		wl, err = reviewSvc.Worklist(ctx, tokens[amina.ID])
		assert.NoError(t, err)
		assert.True(t, wl.IsCompleted)
	})

	t.Run("submit off-scale score", func(t *testing.T) {
		wl, err := reviewSvc.Worklist(ctx, tokens[baraka.ID])
		assert.NoError(t, err)
		obID := wl.Obligations[0].ID

		body := []byte(`{"responses": [{"criterion_code": "D", "score": 9}]}`)
		req, rec := newRequest(http.MethodPost, "/v1/evaluate/"+tokens[baraka.ID]+"/obligations/"+obID, body)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("report reflects submission", func(t *testing.T) {
		report, err := reviewSvc.Report(ctx, period.ID, baraka.ID)
		assert.NoError(t, err)
		assert.Equal(t, 1, report.EvaluatorCount)
		assert.Equal(t, float64(10), report.CompositeScore)
		assert.Equal(t, "A", report.Grade)
		assert.Equal(t, []string{"delegate more"}, report.Advices)
	})

	t.Run("submit to closed period", func(t *testing.T) {
		_, err := reviewSvc.DeactivatePeriod(ctx, period.ID)
		assert.NoError(t, err)

		wl, err := reviewSvc.Worklist(ctx, tokens[baraka.ID])
		assert.NoError(t, err)
		obID := wl.Obligations[0].ID

		body := marchallObj(t, review.Submission{
			Responses: []review.ResponseInput{{CriterionCode: "D", Score: intPtr(2)}},
		})
		req, rec := newRequest(http.MethodPost, "/v1/evaluate/"+tokens[baraka.ID]+"/obligations/"+obID, body)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "evaluation window is closed"})}
		checkCodeAndData(t, tt, rec)
	})
}

func intPtr(i int) *int { return &i }
