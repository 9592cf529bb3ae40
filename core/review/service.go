package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"sort"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/person"
	"github.com/trezcool/tathmini/core/rubric"
)

var (
	// errors
	ErrPeriodNotFound     = errors.New("period not found")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrObligationNotFound = errors.New("obligation not found")
	ErrNotOwned           = errors.New("obligation does not belong to this credential")
	ErrPeriodClosed       = errors.New("evaluation window is closed")
	ErrNoReport           = errors.New("no completed evaluations for this person in this period")

	// mockable
	nowFunc  = func() time.Time { return time.Now().UTC() }
	newID    = func() string { return uuid.New().String() }
	newToken = func() string { return uuid.New().String() }
)

type (
	Repository interface {
		// periods
		CreatePeriod(ctx context.Context, p Period, exec ...core.DBExecutor) (Period, error)
		QueryPeriods(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Period, error)
		GetPeriod(ctx context.Context, id string, exec ...core.DBExecutor) (Period, error)
		// DeactivatePeriods clears the active flag on every Period.
		DeactivatePeriods(ctx context.Context, exec ...core.DBExecutor) error
		SetPeriodActive(ctx context.Context, id string, active bool, exec ...core.DBExecutor) error

		// credentials & obligations
		CountCredentials(ctx context.Context, periodID string, exec ...core.DBExecutor) (int, error)
		CreateCredentials(ctx context.Context, creds []Credential, exec ...core.DBExecutor) error
		CreateObligations(ctx context.Context, obs []Obligation, exec ...core.DBExecutor) error
		QueryCredentialProgress(ctx context.Context, periodID string, exec ...core.DBExecutor) ([]CredentialProgress, error)
		GetCredentialByToken(ctx context.Context, token string, exec ...core.DBExecutor) (Credential, error)
		QueryObligationsForCredential(ctx context.Context, credentialID string, exec ...core.DBExecutor) ([]ObligationDetail, error)
		GetObligation(ctx context.Context, id string, exec ...core.DBExecutor) (Obligation, error)
		CountIncompleteObligations(ctx context.Context, credentialID string, exec ...core.DBExecutor) (int, error)
		SetCredentialCompleted(ctx context.Context, id string, completed bool, exec ...core.DBExecutor) error

		// responses
		// ReplaceResponses deletes all prior responses of the obligation and
		// inserts the given set; both halves must run on the same executor.
		ReplaceResponses(ctx context.Context, obligationID string, rs []Response, exec ...core.DBExecutor) error
		CompleteObligation(ctx context.Context, id, advice string, at time.Time, exec ...core.DBExecutor) error

		// aggregate reads
		QueryCompletedObligationsForSubject(ctx context.Context, periodID, subjectID string, exec ...core.DBExecutor) ([]Obligation, error)
		QueryResponsesForObligations(ctx context.Context, obligationIDs []string, exec ...core.DBExecutor) ([]Response, error)
		// GetCompletionCounts fills the four counts of CompletionStats; Percent is derived by the Service.
		GetCompletionCounts(ctx context.Context, periodID string, exec ...core.DBExecutor) (CompletionStats, error)
	}

	Service interface {
		Rubric() rubric.Rubric

		CreatePeriod(ctx context.Context, np NewPeriod) (Period, error)
		QueryPeriods(ctx context.Context) ([]Period, error)
		GetPeriod(ctx context.Context, id string) (Period, error)
		// ActivatePeriod makes the Period the only active one and, on first
		// activation, generates one Credential per active Person and one
		// Obligation per ordered pair of distinct active Persons. Safe to
		// call repeatedly.
		ActivatePeriod(ctx context.Context, id string) (Activation, error)
		DeactivatePeriod(ctx context.Context, id string) (Period, error)
		CredentialProgress(ctx context.Context, periodID string) ([]CredentialProgress, error)

		Worklist(ctx context.Context, token string) (Worklist, error)
		// Submit records a full response batch for the obligation, replacing
		// any prior batch, and recomputes the credential's completion flag.
		Submit(ctx context.Context, token, obligationID string, sub Submission) (Obligation, error)

		Report(ctx context.Context, periodID, subjectID string) (*Report, error)
		CompletionStats(ctx context.Context, periodID string) (CompletionStats, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		people  person.Repository
		rub     rubric.Rubric
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, people person.Repository, rub rubric.Rubric, mailSvc core.EmailService) Service {
	return &service{
		db:      db,
		repo:    repo,
		people:  people,
		rub:     rub,
		mailSvc: mailSvc,
	}
}

func (svc *service) Rubric() rubric.Rubric { return svc.rub }

func (svc *service) CreatePeriod(ctx context.Context, np NewPeriod) (Period, error) {
	p := Period{
		Name:        np.Name,
		Description: np.Description,
		StartDate:   np.StartDate,
		EndDate:     np.EndDate,
		CreatedAt:   nowFunc(),
	}
	return svc.repo.CreatePeriod(ctx, p)
}

func (svc *service) QueryPeriods(ctx context.Context) ([]Period, error) {
	return svc.repo.QueryPeriods(ctx, []core.DBOrdering{{Field: "created_at"}})
}

func (svc *service) GetPeriod(ctx context.Context, id string) (Period, error) {
	return svc.repo.GetPeriod(ctx, id)
}

// ActivatePeriod enforces the "exactly one active period" invariant
// (clear-then-set) and runs assignment generation, all in one transaction so
// a concurrent double-activation cannot generate twice. Generation is a no-op
// when the period already has credentials: re-activation toggles the flag and
// nothing else.
func (svc *service) ActivatePeriod(ctx context.Context, id string) (Activation, error) {
	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return Activation{}, pkgerrors.Wrap(err, "beginning activation tx")
	}
	defer func() { _ = tx.Rollback() }()

	p, err := svc.repo.GetPeriod(ctx, id, tx)
	if err != nil {
		return Activation{}, err
	}

	if err = svc.repo.DeactivatePeriods(ctx, tx); err != nil {
		return Activation{}, pkgerrors.Wrap(err, "deactivating periods")
	}
	if err = svc.repo.SetPeriodActive(ctx, id, true, tx); err != nil {
		return Activation{}, pkgerrors.Wrap(err, "activating period")
	}
	p.IsActive = true

	existing, err := svc.repo.CountCredentials(ctx, id, tx)
	if err != nil {
		return Activation{}, pkgerrors.Wrap(err, "counting credentials")
	}

	var invites []*core.EmailMessage
	generated := false
	if existing == 0 {
		// immutable roster snapshot; the whole obligation matrix is built
		// from it in one step
		active := true
		people, err := svc.people.QueryPeople(ctx, &person.QueryFilter{IsActive: &active}, nil, tx)
		if err != nil {
			return Activation{}, pkgerrors.Wrap(err, "querying roster snapshot")
		}

		creds, obs := generateAssignments(id, people)
		if len(creds) > 0 {
			if err = svc.repo.CreateCredentials(ctx, creds, tx); err != nil {
				return Activation{}, pkgerrors.Wrap(err, "creating credentials")
			}
			if err = svc.repo.CreateObligations(ctx, obs, tx); err != nil {
				return Activation{}, pkgerrors.Wrap(err, "creating obligations")
			}
			invites = buildInvites(p, people, creds)
			generated = true
		}
	}

	if err = tx.Commit(); err != nil {
		return Activation{}, pkgerrors.Wrap(err, "committing activation tx")
	}

	if len(invites) > 0 && svc.mailSvc != nil {
		svc.mailSvc.SendMessages(invites...)
	}
	return Activation{Period: p, Generated: generated}, nil
}

// generateAssignments builds one Credential per person and one Obligation per
// ordered pair (evaluator, subject), evaluator != subject: n credentials and
// n*(n-1) obligations for n people.
func generateAssignments(periodID string, people []person.Person) ([]Credential, []Obligation) {
	now := nowFunc()
	creds := make([]Credential, 0, len(people))
	obs := make([]Obligation, 0, len(people)*(len(people)-1))

	for _, evaluator := range people {
		cred := Credential{
			ID:          newID(),
			PeriodID:    periodID,
			EvaluatorID: evaluator.ID,
			Token:       newToken(),
			CreatedAt:   now,
		}
		creds = append(creds, cred)

		for _, subject := range people {
			if subject.ID == evaluator.ID {
				continue
			}
			obs = append(obs, Obligation{
				ID:           newID(),
				CredentialID: cred.ID,
				SubjectID:    subject.ID,
				CreatedAt:    now,
			})
		}
	}
	return creds, obs
}

type inviteData struct {
	Name   string
	Period string
	URL    string
}

// buildInvites prepares one evaluation-link email per person with a contact
// address. Only called for freshly generated credentials, never on
// re-activation.
func buildInvites(p Period, people []person.Person, creds []Credential) []*core.EmailMessage {
	tokens := make(map[string]string, len(creds))
	for _, c := range creds {
		tokens[c.EvaluatorID] = c.Token
	}

	msgs := make([]*core.EmailMessage, 0, len(people))
	for _, pers := range people {
		if pers.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: pers.Name, Address: pers.Email}},
			Subject:      fmt.Sprintf("Peer evaluation open: %s", p.Name),
			TemplateName: "evaluation_invite",
			TemplateData: inviteData{
				Name:   pers.Name,
				Period: p.Name,
				URL:    core.Conf.FrontendBaseURL + "/evaluate/" + tokens[pers.ID],
			},
		})
	}
	return msgs
}

func (svc *service) DeactivatePeriod(ctx context.Context, id string) (Period, error) {
	p, err := svc.repo.GetPeriod(ctx, id)
	if err != nil {
		return Period{}, err
	}
	if err = svc.repo.SetPeriodActive(ctx, id, false); err != nil {
		return Period{}, pkgerrors.Wrap(err, "deactivating period")
	}
	p.IsActive = false
	return p, nil
}

func (svc *service) CredentialProgress(ctx context.Context, periodID string) ([]CredentialProgress, error) {
	if _, err := svc.repo.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	return svc.repo.QueryCredentialProgress(ctx, periodID)
}

func (svc *service) Worklist(ctx context.Context, token string) (Worklist, error) {
	cred, err := svc.repo.GetCredentialByToken(ctx, token)
	if err != nil {
		return Worklist{}, err
	}
	p, err := svc.repo.GetPeriod(ctx, cred.PeriodID)
	if err != nil {
		return Worklist{}, err
	}
	evaluator, err := svc.people.GetPerson(ctx, cred.EvaluatorID)
	if err != nil {
		return Worklist{}, err
	}
	obs, err := svc.repo.QueryObligationsForCredential(ctx, cred.ID)
	if err != nil {
		return Worklist{}, err
	}
	return Worklist{
		Period:      p,
		Evaluator:   evaluator.Name,
		IsCompleted: cred.IsCompleted,
		Obligations: obs,
	}, nil
}

// Submit validates the batch against the rubric, replaces the obligation's
// responses wholesale (delete-then-insert in one transaction, so no reader
// ever sees a partial batch), stamps completion, and recomputes the
// credential's completed flag from current obligation state. The recompute is
// intentionally not cached: concurrent submits under one credential
// self-correct whichever order they land in.
func (svc *service) Submit(ctx context.Context, token, obligationID string, sub Submission) (Obligation, error) {
	if err := sub.Validate(svc.rub); err != nil {
		return Obligation{}, err
	}

	cred, err := svc.repo.GetCredentialByToken(ctx, token)
	if err != nil {
		return Obligation{}, err
	}
	ob, err := svc.repo.GetObligation(ctx, obligationID)
	if err != nil {
		return Obligation{}, err
	}
	if ob.CredentialID != cred.ID {
		return Obligation{}, ErrNotOwned
	}
	p, err := svc.repo.GetPeriod(ctx, cred.PeriodID)
	if err != nil {
		return Obligation{}, err
	}
	if !p.IsActive {
		return Obligation{}, ErrPeriodClosed
	}

	now := nowFunc()
	responses := make([]Response, 0, len(sub.Responses))
	for _, in := range sub.Responses {
		r := Response{
			ID:            newID(),
			ObligationID:  ob.ID,
			CriterionCode: in.CriterionCode,
			Justification: in.Justification,
			CreatedAt:     now,
		}
		if in.Score != nil && *in.Score != 0 {
			r.Score.SetValid(*in.Score)
		}
		responses = append(responses, r)
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return Obligation{}, pkgerrors.Wrap(err, "beginning submit tx")
	}
	defer func() { _ = tx.Rollback() }()

	if err = svc.repo.ReplaceResponses(ctx, ob.ID, responses, tx); err != nil {
		return Obligation{}, pkgerrors.Wrap(err, "replacing responses")
	}
	if err = svc.repo.CompleteObligation(ctx, ob.ID, sub.Advice, now, tx); err != nil {
		return Obligation{}, pkgerrors.Wrap(err, "completing obligation")
	}

	incomplete, err := svc.repo.CountIncompleteObligations(ctx, cred.ID, tx)
	if err != nil {
		return Obligation{}, pkgerrors.Wrap(err, "counting incomplete obligations")
	}
	if err = svc.repo.SetCredentialCompleted(ctx, cred.ID, incomplete == 0, tx); err != nil {
		return Obligation{}, pkgerrors.Wrap(err, "updating credential completion")
	}

	if err = tx.Commit(); err != nil {
		return Obligation{}, pkgerrors.Wrap(err, "committing submit tx")
	}

	ob.IsCompleted = true
	ob.Advice = sub.Advice
	ob.CompletedAt.SetValid(now)
	return ob, nil
}

// Report aggregates all completed obligations targeting the subject into an
// anonymized scorecard. It returns ErrNoReport when nothing is completed yet:
// "zero signal" is a distinct outcome from "scored at the minimum".
func (svc *service) Report(ctx context.Context, periodID, subjectID string) (*Report, error) {
	if _, err := svc.repo.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	subject, err := svc.people.GetPerson(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	obs, err := svc.repo.QueryCompletedObligationsForSubject(ctx, periodID, subjectID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying completed obligations")
	}
	if len(obs) == 0 {
		return nil, ErrNoReport
	}

	ids := make([]string, 0, len(obs))
	advices := make([]string, 0, len(obs))
	for _, ob := range obs {
		ids = append(ids, ob.ID)
		if ob.Advice != "" {
			advices = append(advices, ob.Advice)
		}
	}
	sort.Strings(advices)

	responses, err := svc.repo.QueryResponsesForObligations(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying responses")
	}

	criteria, blockAvgs, composite := svc.aggregate(responses)
	grade := svc.rub.GradeFor(composite)

	return &Report{
		Subject:        subject,
		PeriodID:       periodID,
		RubricVersion:  svc.rub.Version,
		EvaluatorCount: len(obs),
		Criteria:       criteria,
		BlockAverages:  blockAvgs,
		CompositeScore: composite,
		Grade:          grade.Grade,
		GradeName:      grade.Name,
		Advices:        advices,
	}, nil
}

// aggregate groups present scores by criterion and reduces them to the
// anonymized multiset view. Per-criterion averages round to 2 decimals; block
// averages are the mean of their scored criteria (zero when none scored); the
// composite is the sum of block averages rounded to 1 decimal, weighting each
// block equally regardless of its criterion count.
func (svc *service) aggregate(responses []Response) (map[string]CriterionStats, map[string]float64, float64) {
	type acc struct {
		scores         []int
		justifications []string
	}
	byCriterion := make(map[string]*acc)

	for _, r := range responses {
		if _, ok := svc.rub.Criterion(r.CriterionCode); !ok {
			continue // stale code from an older rubric version
		}
		a, ok := byCriterion[r.CriterionCode]
		if !ok {
			a = &acc{}
			byCriterion[r.CriterionCode] = a
		}
		if r.Score.Valid && r.Score.Int > 0 {
			a.scores = append(a.scores, r.Score.Int)
		}
		if r.Justification != "" {
			a.justifications = append(a.justifications, r.Justification)
		}
	}

	criteria := make(map[string]CriterionStats, len(byCriterion))
	for code, a := range byCriterion {
		stats := CriterionStats{
			Count:          len(a.scores),
			Justifications: a.justifications,
		}
		sort.Strings(stats.Justifications)
		if len(a.scores) > 0 {
			sum := 0
			stats.Min, stats.Max = a.scores[0], a.scores[0]
			for _, s := range a.scores {
				sum += s
				if s < stats.Min {
					stats.Min = s
				}
				if s > stats.Max {
					stats.Max = s
				}
			}
			stats.Avg = round2(float64(sum) / float64(len(a.scores)))
		}
		criteria[code] = stats
	}

	blockAvgs := make(map[string]float64, len(svc.rub.Blocks))
	var composite float64
	for _, b := range svc.rub.Blocks {
		var sum float64
		var scored int
		for _, c := range b.Criteria {
			if stats, ok := criteria[c.Code]; ok && stats.Count > 0 {
				sum += stats.Avg
				scored++
			}
		}
		var avg float64
		if scored > 0 {
			avg = round2(sum / float64(scored))
		}
		blockAvgs[b.Code] = avg
		composite += avg
	}
	return criteria, blockAvgs, round1(composite)
}

func (svc *service) CompletionStats(ctx context.Context, periodID string) (CompletionStats, error) {
	if _, err := svc.repo.GetPeriod(ctx, periodID); err != nil {
		return CompletionStats{}, err
	}
	stats, err := svc.repo.GetCompletionCounts(ctx, periodID)
	if err != nil {
		return CompletionStats{}, pkgerrors.Wrap(err, "counting completion")
	}
	if stats.TotalObligations > 0 {
		stats.Percent = int(math.Round(float64(stats.CompletedObligations) / float64(stats.TotalObligations) * 100))
	}
	return stats, nil
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
