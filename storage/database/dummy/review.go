package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/review"
)

type reviewRepository struct {
	db *DB
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *DB) review.Repository {
	return &reviewRepository{db: db}
}

// --- periods ---

func (repo *reviewRepository) CreatePeriod(ctx context.Context, p review.Period, exec ...core.DBExecutor) (review.Period, error) {
	repo.db.period.Lock()
	defer repo.db.period.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	repo.db.period.table[p.ID] = &p
	return p, nil
}

func (repo *reviewRepository) QueryPeriods(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]review.Period, error) {
	repo.db.period.RLock()
	defer repo.db.period.RUnlock()

	periods := make([]review.Period, 0, len(repo.db.period.table))
	for _, p := range repo.db.period.table {
		periods = append(periods, *p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].CreatedAt.Before(periods[j].CreatedAt) })
	return periods, nil
}

func (repo *reviewRepository) GetPeriod(ctx context.Context, id string, exec ...core.DBExecutor) (review.Period, error) {
	repo.db.period.RLock()
	defer repo.db.period.RUnlock()

	if p, ok := repo.db.period.table[id]; ok {
		return *p, nil
	}
	return review.Period{}, review.ErrPeriodNotFound
}

func (repo *reviewRepository) DeactivatePeriods(ctx context.Context, exec ...core.DBExecutor) error {
	repo.db.period.Lock()
	defer repo.db.period.Unlock()

	for _, p := range repo.db.period.table {
		p.IsActive = false
	}
	return nil
}

func (repo *reviewRepository) SetPeriodActive(ctx context.Context, id string, active bool, exec ...core.DBExecutor) error {
	repo.db.period.Lock()
	defer repo.db.period.Unlock()

	p, ok := repo.db.period.table[id]
	if !ok {
		return review.ErrPeriodNotFound
	}
	p.IsActive = active
	return nil
}

// --- credentials & obligations ---

func (repo *reviewRepository) CountCredentials(ctx context.Context, periodID string, exec ...core.DBExecutor) (int, error) {
	repo.db.credential.RLock()
	defer repo.db.credential.RUnlock()

	n := 0
	for _, c := range repo.db.credential.table {
		if c.PeriodID == periodID {
			n++
		}
	}
	return n, nil
}

func (repo *reviewRepository) CreateCredentials(ctx context.Context, creds []review.Credential, exec ...core.DBExecutor) error {
	repo.db.credential.Lock()
	defer repo.db.credential.Unlock()

	for i := range creds {
		c := creds[i]
		repo.db.credential.table[c.ID] = &c
	}
	return nil
}

func (repo *reviewRepository) CreateObligations(ctx context.Context, obs []review.Obligation, exec ...core.DBExecutor) error {
	repo.db.obligation.Lock()
	defer repo.db.obligation.Unlock()

	for i := range obs {
		ob := obs[i]
		repo.db.obligation.table[ob.ID] = &ob
	}
	return nil
}

func (repo *reviewRepository) QueryCredentialProgress(ctx context.Context, periodID string, exec ...core.DBExecutor) ([]review.CredentialProgress, error) {
	repo.db.credential.RLock()
	defer repo.db.credential.RUnlock()
	repo.db.obligation.RLock()
	defer repo.db.obligation.RUnlock()
	repo.db.person.RLock()
	defer repo.db.person.RUnlock()

	var progress []review.CredentialProgress
	for _, c := range repo.db.credential.table {
		if c.PeriodID != periodID {
			continue
		}
		cp := review.CredentialProgress{Credential: *c}
		if p, ok := repo.db.person.table[c.EvaluatorID]; ok {
			cp.EvaluatorName = p.Name
			cp.EvaluatorRole = p.Role
		}
		for _, ob := range repo.db.obligation.table {
			if ob.CredentialID != c.ID {
				continue
			}
			cp.TotalCount++
			if ob.IsCompleted {
				cp.CompletedCount++
			}
		}
		progress = append(progress, cp)
	}
	sort.Slice(progress, func(i, j int) bool { return progress[i].EvaluatorName < progress[j].EvaluatorName })
	return progress, nil
}

func (repo *reviewRepository) GetCredentialByToken(ctx context.Context, token string, exec ...core.DBExecutor) (review.Credential, error) {
	repo.db.credential.RLock()
	defer repo.db.credential.RUnlock()

	for _, c := range repo.db.credential.table {
		if c.Token == token {
			return *c, nil
		}
	}
	return review.Credential{}, review.ErrCredentialNotFound
}

func (repo *reviewRepository) QueryObligationsForCredential(ctx context.Context, credentialID string, exec ...core.DBExecutor) ([]review.ObligationDetail, error) {
	repo.db.obligation.RLock()
	defer repo.db.obligation.RUnlock()
	repo.db.person.RLock()
	defer repo.db.person.RUnlock()

	var details []review.ObligationDetail
	for _, ob := range repo.db.obligation.table {
		if ob.CredentialID != credentialID {
			continue
		}
		d := review.ObligationDetail{Obligation: *ob}
		if p, ok := repo.db.person.table[ob.SubjectID]; ok {
			d.SubjectName = p.Name
			d.SubjectRole = p.Role
		}
		details = append(details, d)
	}
	sort.Slice(details, func(i, j int) bool { return details[i].SubjectName < details[j].SubjectName })
	return details, nil
}

func (repo *reviewRepository) GetObligation(ctx context.Context, id string, exec ...core.DBExecutor) (review.Obligation, error) {
	repo.db.obligation.RLock()
	defer repo.db.obligation.RUnlock()

	if ob, ok := repo.db.obligation.table[id]; ok {
		return *ob, nil
	}
	return review.Obligation{}, review.ErrObligationNotFound
}

func (repo *reviewRepository) CountIncompleteObligations(ctx context.Context, credentialID string, exec ...core.DBExecutor) (int, error) {
	repo.db.obligation.RLock()
	defer repo.db.obligation.RUnlock()

	n := 0
	for _, ob := range repo.db.obligation.table {
		if ob.CredentialID == credentialID && !ob.IsCompleted {
			n++
		}
	}
	return n, nil
}

func (repo *reviewRepository) SetCredentialCompleted(ctx context.Context, id string, completed bool, exec ...core.DBExecutor) error {
	repo.db.credential.Lock()
	defer repo.db.credential.Unlock()

	c, ok := repo.db.credential.table[id]
	if !ok {
		return review.ErrCredentialNotFound
	}
	c.IsCompleted = completed
	return nil
}

// --- responses ---

func (repo *reviewRepository) ReplaceResponses(ctx context.Context, obligationID string, rs []review.Response, exec ...core.DBExecutor) error {
	repo.db.response.Lock()
	defer repo.db.response.Unlock()

	for id, r := range repo.db.response.table {
		if r.ObligationID == obligationID {
			delete(repo.db.response.table, id)
		}
	}
	for i := range rs {
		r := rs[i]
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		repo.db.response.table[r.ID] = &r
	}
	return nil
}

func (repo *reviewRepository) CompleteObligation(ctx context.Context, id, advice string, at time.Time, exec ...core.DBExecutor) error {
	repo.db.obligation.Lock()
	defer repo.db.obligation.Unlock()

	ob, ok := repo.db.obligation.table[id]
	if !ok {
		return review.ErrObligationNotFound
	}
	ob.IsCompleted = true
	ob.Advice = advice
	ob.CompletedAt.SetValid(at)
	return nil
}

// --- aggregate reads ---

func (repo *reviewRepository) QueryCompletedObligationsForSubject(ctx context.Context, periodID, subjectID string, exec ...core.DBExecutor) ([]review.Obligation, error) {
	repo.db.credential.RLock()
	defer repo.db.credential.RUnlock()
	repo.db.obligation.RLock()
	defer repo.db.obligation.RUnlock()

	periodCreds := make(map[string]bool)
	for _, c := range repo.db.credential.table {
		if c.PeriodID == periodID {
			periodCreds[c.ID] = true
		}
	}

	var obs []review.Obligation
	for _, ob := range repo.db.obligation.table {
		if ob.IsCompleted && ob.SubjectID == subjectID && periodCreds[ob.CredentialID] {
			obs = append(obs, *ob)
		}
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].ID < obs[j].ID })
	return obs, nil
}

func (repo *reviewRepository) QueryResponsesForObligations(ctx context.Context, obligationIDs []string, exec ...core.DBExecutor) ([]review.Response, error) {
	repo.db.response.RLock()
	defer repo.db.response.RUnlock()

	wanted := make(map[string]bool, len(obligationIDs))
	for _, id := range obligationIDs {
		wanted[id] = true
	}

	var responses []review.Response
	for _, r := range repo.db.response.table {
		if wanted[r.ObligationID] {
			responses = append(responses, *r)
		}
	}
	sort.Slice(responses, func(i, j int) bool { return responses[i].ID < responses[j].ID })
	return responses, nil
}

func (repo *reviewRepository) GetCompletionCounts(ctx context.Context, periodID string, exec ...core.DBExecutor) (review.CompletionStats, error) {
	repo.db.credential.RLock()
	defer repo.db.credential.RUnlock()
	repo.db.obligation.RLock()
	defer repo.db.obligation.RUnlock()

	var stats review.CompletionStats
	periodCreds := make(map[string]bool)
	for _, c := range repo.db.credential.table {
		if c.PeriodID != periodID {
			continue
		}
		periodCreds[c.ID] = true
		stats.TotalCredentials++
		if c.IsCompleted {
			stats.CompletedCredentials++
		}
	}
	for _, ob := range repo.db.obligation.table {
		if !periodCreds[ob.CredentialID] {
			continue
		}
		stats.TotalObligations++
		if ob.IsCompleted {
			stats.CompletedObligations++
		}
	}
	return stats, nil
}
