package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/review"
	"github.com/trezcool/tathmini/storage/database"
)

// start_date/end_date are DATE columns; they round-trip as YYYY-MM-DD strings.
const periodCols = `id, name, description,
	to_char(start_date, 'YYYY-MM-DD') AS start_date,
	to_char(end_date, 'YYYY-MM-DD') AS end_date,
	is_active, created_at`

const credentialCols = "id, period_id, evaluator_id, token, is_completed, created_at"

type reviewRepository struct {
	db *database.DB
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *database.DB) review.Repository {
	return &reviewRepository{db: db}
}

func (repo *reviewRepository) ext(exec []core.DBExecutor) database.Ext {
	if len(exec) > 0 {
		if e, ok := exec[0].(database.Ext); ok {
			return e
		}
	}
	return repo.db
}

// --- periods ---

func (repo *reviewRepository) CreatePeriod(ctx context.Context, p review.Period, exec ...core.DBExecutor) (review.Period, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := repo.ext(exec).NamedExecContext(ctx,
		`INSERT INTO period (id, name, description, start_date, end_date, is_active, created_at)
		 VALUES (:id, :name, :description, :start_date, :end_date, :is_active, :created_at)`, p)
	return p, err
}

func (repo *reviewRepository) QueryPeriods(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]review.Period, error) {
	query := "SELECT " + periodCols + " FROM period"
	if len(ordering) > 0 {
		orders := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orders = append(orders, ord.String())
		}
		query += " ORDER BY " + strings.Join(orders, ", ")
	}

	periods := make([]review.Period, 0)
	err := repo.ext(exec).SelectContext(ctx, &periods, query)
	return periods, err
}

func (repo *reviewRepository) GetPeriod(ctx context.Context, id string, exec ...core.DBExecutor) (review.Period, error) {
	var p review.Period
	err := repo.ext(exec).GetContext(ctx, &p, "SELECT "+periodCols+" FROM period WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return review.Period{}, review.ErrPeriodNotFound
	}
	return p, err
}

func (repo *reviewRepository) DeactivatePeriods(ctx context.Context, exec ...core.DBExecutor) error {
	_, err := repo.ext(exec).ExecContext(ctx, "UPDATE period SET is_active = FALSE WHERE is_active")
	return err
}

func (repo *reviewRepository) SetPeriodActive(ctx context.Context, id string, active bool, exec ...core.DBExecutor) error {
	res, err := repo.ext(exec).ExecContext(ctx, "UPDATE period SET is_active = $2 WHERE id = $1", id, active)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return review.ErrPeriodNotFound
	}
	return nil
}

// --- credentials & obligations ---

func (repo *reviewRepository) CountCredentials(ctx context.Context, periodID string, exec ...core.DBExecutor) (int, error) {
	var n int
	err := repo.ext(exec).GetContext(ctx, &n, "SELECT COUNT(*) FROM credential WHERE period_id = $1", periodID)
	return n, err
}

func (repo *reviewRepository) CreateCredentials(ctx context.Context, creds []review.Credential, exec ...core.DBExecutor) error {
	for _, c := range creds {
		_, err := repo.ext(exec).NamedExecContext(ctx,
			`INSERT INTO credential (id, period_id, evaluator_id, token, is_completed, created_at)
			 VALUES (:id, :period_id, :evaluator_id, :token, :is_completed, :created_at)`, c)
		if err != nil {
			return err
		}
	}
	return nil
}

func (repo *reviewRepository) CreateObligations(ctx context.Context, obs []review.Obligation, exec ...core.DBExecutor) error {
	for _, ob := range obs {
		_, err := repo.ext(exec).NamedExecContext(ctx,
			`INSERT INTO obligation (id, credential_id, subject_id, is_completed, advice, completed_at, created_at)
			 VALUES (:id, :credential_id, :subject_id, :is_completed, :advice, :completed_at, :created_at)`, ob)
		if err != nil {
			return err
		}
	}
	return nil
}

func (repo *reviewRepository) QueryCredentialProgress(ctx context.Context, periodID string, exec ...core.DBExecutor) ([]review.CredentialProgress, error) {
	query := `
	SELECT c.id, c.period_id, c.evaluator_id, c.token, c.is_completed, c.created_at,
	       p.name AS evaluator_name, p.role AS evaluator_role,
	       COUNT(o.id) FILTER (WHERE o.is_completed) AS completed_count,
	       COUNT(o.id) AS total_count
	FROM credential c
	JOIN person p ON p.id = c.evaluator_id
	LEFT JOIN obligation o ON o.credential_id = c.id
	WHERE c.period_id = $1
	GROUP BY c.id, p.name, p.role
	ORDER BY p.name`

	progress := make([]review.CredentialProgress, 0)
	err := repo.ext(exec).SelectContext(ctx, &progress, query, periodID)
	return progress, err
}

func (repo *reviewRepository) GetCredentialByToken(ctx context.Context, token string, exec ...core.DBExecutor) (review.Credential, error) {
	var c review.Credential
	err := repo.ext(exec).GetContext(ctx, &c, "SELECT "+credentialCols+" FROM credential WHERE token = $1", token)
	if err == sql.ErrNoRows {
		return review.Credential{}, review.ErrCredentialNotFound
	}
	return c, err
}

func (repo *reviewRepository) QueryObligationsForCredential(ctx context.Context, credentialID string, exec ...core.DBExecutor) ([]review.ObligationDetail, error) {
	query := `
	SELECT o.id, o.credential_id, o.subject_id, o.is_completed, o.advice, o.completed_at, o.created_at,
	       p.name AS subject_name, p.role AS subject_role
	FROM obligation o
	JOIN person p ON p.id = o.subject_id
	WHERE o.credential_id = $1
	ORDER BY p.name`

	details := make([]review.ObligationDetail, 0)
	err := repo.ext(exec).SelectContext(ctx, &details, query, credentialID)
	return details, err
}

func (repo *reviewRepository) GetObligation(ctx context.Context, id string, exec ...core.DBExecutor) (review.Obligation, error) {
	var ob review.Obligation
	err := repo.ext(exec).GetContext(ctx, &ob,
		"SELECT id, credential_id, subject_id, is_completed, advice, completed_at, created_at FROM obligation WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return review.Obligation{}, review.ErrObligationNotFound
	}
	return ob, err
}

func (repo *reviewRepository) CountIncompleteObligations(ctx context.Context, credentialID string, exec ...core.DBExecutor) (int, error) {
	var n int
	err := repo.ext(exec).GetContext(ctx, &n,
		"SELECT COUNT(*) FROM obligation WHERE credential_id = $1 AND NOT is_completed", credentialID)
	return n, err
}

func (repo *reviewRepository) SetCredentialCompleted(ctx context.Context, id string, completed bool, exec ...core.DBExecutor) error {
	res, err := repo.ext(exec).ExecContext(ctx, "UPDATE credential SET is_completed = $2 WHERE id = $1", id, completed)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return review.ErrCredentialNotFound
	}
	return nil
}

// --- responses ---

func (repo *reviewRepository) ReplaceResponses(ctx context.Context, obligationID string, rs []review.Response, exec ...core.DBExecutor) error {
	ext := repo.ext(exec)
	if _, err := ext.ExecContext(ctx, "DELETE FROM response WHERE obligation_id = $1", obligationID); err != nil {
		return err
	}
	for _, r := range rs {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		_, err := ext.NamedExecContext(ctx,
			`INSERT INTO response (id, obligation_id, criterion_code, score, justification, created_at)
			 VALUES (:id, :obligation_id, :criterion_code, :score, :justification, :created_at)`, r)
		if err != nil {
			return err
		}
	}
	return nil
}

func (repo *reviewRepository) CompleteObligation(ctx context.Context, id, advice string, at time.Time, exec ...core.DBExecutor) error {
	res, err := repo.ext(exec).ExecContext(ctx,
		"UPDATE obligation SET is_completed = TRUE, advice = $2, completed_at = $3 WHERE id = $1", id, advice, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return review.ErrObligationNotFound
	}
	return nil
}

// --- aggregate reads ---

func (repo *reviewRepository) QueryCompletedObligationsForSubject(ctx context.Context, periodID, subjectID string, exec ...core.DBExecutor) ([]review.Obligation, error) {
	query := `
	SELECT o.id, o.credential_id, o.subject_id, o.is_completed, o.advice, o.completed_at, o.created_at
	FROM obligation o
	JOIN credential c ON c.id = o.credential_id
	WHERE c.period_id = $1 AND o.subject_id = $2 AND o.is_completed
	ORDER BY o.id`

	obs := make([]review.Obligation, 0)
	err := repo.ext(exec).SelectContext(ctx, &obs, query, periodID, subjectID)
	return obs, err
}

func (repo *reviewRepository) QueryResponsesForObligations(ctx context.Context, obligationIDs []string, exec ...core.DBExecutor) ([]review.Response, error) {
	if len(obligationIDs) == 0 {
		return []review.Response{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT id, obligation_id, criterion_code, score, justification, created_at FROM response WHERE obligation_id IN (?) ORDER BY id",
		obligationIDs)
	if err != nil {
		return nil, err
	}
	ext := repo.ext(exec)
	query = ext.Rebind(query)

	responses := make([]review.Response, 0)
	err = ext.SelectContext(ctx, &responses, query, args...)
	return responses, err
}

func (repo *reviewRepository) GetCompletionCounts(ctx context.Context, periodID string, exec ...core.DBExecutor) (review.CompletionStats, error) {
	query := `
	SELECT COALESCE(COUNT(o.id), 0)                                  AS total_obligations,
	       COALESCE(COUNT(o.id) FILTER (WHERE o.is_completed), 0)    AS completed_obligations,
	       COALESCE(COUNT(DISTINCT c.id), 0)                         AS total_credentials,
	       COALESCE(COUNT(DISTINCT c.id) FILTER (WHERE c.is_completed), 0) AS completed_credentials
	FROM credential c
	LEFT JOIN obligation o ON o.credential_id = c.id
	WHERE c.period_id = $1`

	var stats review.CompletionStats
	err := repo.ext(exec).GetContext(ctx, &stats, query, periodID)
	return stats, err
}
