package person

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/tathmini/core"
)

var (
	// errors
	ErrNotFound = errors.New("person not found")

	// nameMaxSim is the similarity ratio above which two roster names are
	// considered duplicates.
	nameMaxSim      = .85
	nameTooSimText  = "a person with a similar name is already on the roster"
	trueVal         = true
	activeOnlyParam = &trueVal
)

type (
	Repository interface {
		CreatePerson(ctx context.Context, p Person, exec ...core.DBExecutor) (Person, error)
		// QueryPeople applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Person.Name, Person.Role or Person.Email.
		QueryPeople(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Person, error)
		GetPerson(ctx context.Context, id string, exec ...core.DBExecutor) (Person, error)
		UpdatePerson(ctx context.Context, p Person, isActive *bool, exec ...core.DBExecutor) (Person, error)
	}

	Service interface {
		Create(ctx context.Context, np NewPerson) (Person, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Person, error)
		QueryActive(ctx context.Context) ([]Person, error)
		GetByID(ctx context.Context, id string) (Person, error)
		Update(ctx context.Context, id string, up UpdatePerson) (Person, error)
		Deactivate(ctx context.Context, id string) (Person, error)
		CheckNameSimilarity(name string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, np NewPerson) (Person, error) {
	now := time.Now().UTC()
	p := Person{
		Name:      np.Name,
		Role:      np.Role,
		Email:     np.Email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreatePerson(ctx, p)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Person, error) {
	if filter != nil {
		filter.Clean()
	}
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	return svc.repo.QueryPeople(ctx, filter, ordering)
}

func (svc *service) QueryActive(ctx context.Context) ([]Person, error) {
	return svc.Query(ctx, &QueryFilter{IsActive: activeOnlyParam})
}

func (svc *service) GetByID(ctx context.Context, id string) (Person, error) {
	return svc.repo.GetPerson(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, up UpdatePerson) (Person, error) {
	p := Person{
		ID:        id,
		Name:      up.Name,
		Role:      up.Role,
		Email:     up.Email,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdatePerson(ctx, p, up.IsActive)
}

// Deactivate soft-deletes a Person; existing assignments and responses are kept.
func (svc *service) Deactivate(ctx context.Context, id string) (Person, error) {
	p, err := svc.repo.GetPerson(ctx, id)
	if err != nil {
		return Person{}, err
	}
	p.UpdatedAt = time.Now().UTC()
	inactive := false
	return svc.repo.UpdatePerson(ctx, p, &inactive)
}

// CheckNameSimilarity rejects roster additions whose name is nearly identical
// to an active Person's, a common source of accidental duplicate entries.
func (svc *service) CheckNameSimilarity(name string) error {
	people, err := svc.QueryActive(context.Background())
	if err != nil {
		return err
	}

	lname := strings.ToLower(name)
	for _, p := range people {
		ratio := difflib.NewMatcher(strings.Split(lname, ""), strings.Split(strings.ToLower(p.Name), "")).QuickRatio()
		if ratio >= nameMaxSim {
			return core.NewValidationError(nil, core.FieldError{Field: "name", Error: nameTooSimText})
		}
	}
	return nil
}
