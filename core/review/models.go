package review

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/person"
	"github.com/trezcool/tathmini/core/rubric"
)

const dateLayout = "2006-01-02"

// Period is a named evaluation window. At most one Period is active at any
// time; activating one deactivates all others.
type Period struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	StartDate   string    `json:"start_date" db:"start_date"` // YYYY-MM-DD
	EndDate     string    `json:"end_date" db:"end_date"`     // YYYY-MM-DD
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// NewPeriod contains information needed to create a new Period.
type NewPeriod struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

func (np *NewPeriod) Validate() error {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	np.StartDate = core.CleanString(np.StartDate)
	np.EndDate = core.CleanString(np.EndDate)

	if err := core.Validate.Struct(np); err != nil {
		return err
	}

	start, _ := time.Parse(dateLayout, np.StartDate)
	end, _ := time.Parse(dateLayout, np.EndDate)
	if end.Before(start) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date cannot precede start date"})
	}
	return nil
}

// Credential is the anonymous access token bound to one evaluator for one
// Period. Possession of the token is the sole authentication for submissions.
// It is completed once every obligation under it is completed.
type Credential struct {
	ID          string    `json:"id" db:"id"`
	PeriodID    string    `json:"period_id" db:"period_id"`
	EvaluatorID string    `json:"evaluator_id" db:"evaluator_id"`
	Token       string    `json:"token" db:"token"`
	IsCompleted bool      `json:"is_completed" db:"is_completed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// CredentialProgress decorates a Credential with evaluator identity and
// per-credential completion counts for the admin listing. It never leaves
// the admin surface.
type CredentialProgress struct {
	Credential
	EvaluatorName  string `json:"evaluator_name" db:"evaluator_name"`
	EvaluatorRole  string `json:"evaluator_role" db:"evaluator_role"`
	CompletedCount int    `json:"completed_count" db:"completed_count"`
	TotalCount     int    `json:"total_count" db:"total_count"`
}

// Obligation is one required evaluation of one subject by one evaluator
// (via their Credential) within a Period.
type Obligation struct {
	ID           string    `json:"id" db:"id"`
	CredentialID string    `json:"credential_id" db:"credential_id"`
	SubjectID    string    `json:"subject_id" db:"subject_id"`
	IsCompleted  bool      `json:"is_completed" db:"is_completed"`
	Advice       string    `json:"advice,omitempty" db:"advice"` // free-text closing remark
	CompletedAt  null.Time `json:"completed_at" db:"completed_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
}

// ObligationDetail decorates an Obligation with subject identity for the
// evaluator's worklist.
type ObligationDetail struct {
	Obligation
	SubjectName string `json:"subject_name" db:"subject_name"`
	SubjectRole string `json:"subject_role" db:"subject_role"`
}

// Response is one scored entry for one (Obligation, criterion) pair.
// A null score means the evaluator skipped the criterion.
type Response struct {
	ID            string    `json:"id" db:"id"`
	ObligationID  string    `json:"obligation_id" db:"obligation_id"`
	CriterionCode string    `json:"criterion_code" db:"criterion_code"`
	Score         null.Int  `json:"score" db:"score"`
	Justification string    `json:"justification,omitempty" db:"justification"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"` // UTC
}

// ResponseInput is one inbound answer within a Submission.
type ResponseInput struct {
	CriterionCode string `json:"criterion_code" validate:"required"`
	Score         *int   `json:"score"`
	Justification string `json:"justification"`
}

// Submission is a full response batch for one Obligation. Submissions replace
// any prior responses wholesale; there is no field-by-field merge.
type Submission struct {
	Responses []ResponseInput `json:"responses" validate:"required,dive"`
	Advice    string          `json:"advice"`
}

// Validate checks the Submission against the rubric in force: every criterion
// code must belong to the rubric and appear at most once, and a present score
// must lie on the scale.
// Out-of-scale scores are rejected, not clamped; zero or absent scores mean
// "not rated".
func (s *Submission) Validate(r rubric.Rubric) error {
	s.Advice = core.CleanString(s.Advice)
	for i := range s.Responses {
		s.Responses[i].CriterionCode = core.CleanString(s.Responses[i].CriterionCode)
		s.Responses[i].Justification = core.CleanString(s.Responses[i].Justification)
	}

	if err := core.Validate.Struct(s); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Responses))
	for _, resp := range s.Responses {
		if _, ok := r.Criterion(resp.CriterionCode); !ok {
			return core.NewValidationError(nil, core.FieldError{
				Field: "criterion_code",
				Error: "unknown criterion: " + resp.CriterionCode,
			})
		}
		if seen[resp.CriterionCode] {
			return core.NewValidationError(nil, core.FieldError{
				Field: "criterion_code",
				Error: "duplicate criterion: " + resp.CriterionCode,
			})
		}
		seen[resp.CriterionCode] = true
		if resp.Score != nil && *resp.Score != 0 && !r.ValidScore(*resp.Score) {
			return core.NewValidationError(nil, core.FieldError{
				Field: "score",
				Error: "score for " + resp.CriterionCode + " is off the rubric scale",
			})
		}
	}
	return nil
}

// Worklist is everything the evaluator-facing surface needs to render a
// credential's remaining work. Period is included even when inactive so the
// caller can render a "window closed" state.
type Worklist struct {
	Period      Period             `json:"period"`
	Evaluator   string             `json:"evaluator"`
	IsCompleted bool               `json:"is_completed"`
	Obligations []ObligationDetail `json:"obligations"`
}

// CriterionStats is the anonymized aggregate for one criterion: the multiset
// of present scores reduced to average/min/max/count, plus unattributed
// justifications.
type CriterionStats struct {
	Avg            float64  `json:"avg_score"`
	Min            int      `json:"min_score"`
	Max            int      `json:"max_score"`
	Count          int      `json:"count"`
	Justifications []string `json:"justifications"`
}

// Report is the anonymized scorecard for one subject in one period.
// Nothing in it attributes a score or remark to an evaluator; remarks are
// sorted so the output is deterministic regardless of submission order.
type Report struct {
	Subject        person.Person             `json:"subject"`
	PeriodID       string                    `json:"period_id"`
	RubricVersion  int                       `json:"rubric_version"`
	EvaluatorCount int                       `json:"evaluator_count"`
	Criteria       map[string]CriterionStats `json:"criteria"`
	BlockAverages  map[string]float64        `json:"block_averages"`
	CompositeScore float64                   `json:"composite_score"`
	Grade          string                    `json:"grade"`
	GradeName      string                    `json:"grade_name"`
	Advices        []string                  `json:"advices"`
}

// CompletionStats is the roll-up completion view for a Period.
type CompletionStats struct {
	TotalObligations     int `json:"total_obligations" db:"total_obligations"`
	CompletedObligations int `json:"completed_obligations" db:"completed_obligations"`
	TotalCredentials     int `json:"total_credentials" db:"total_credentials"`
	CompletedCredentials int `json:"completed_credentials" db:"completed_credentials"`
	Percent              int `json:"percent" db:"-"`
}

// Activation is the outcome of activating a Period.
type Activation struct {
	Period    Period `json:"period"`
	Generated bool   `json:"generated"` // false on idempotent re-activation
}
