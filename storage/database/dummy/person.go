package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/person"
)

type personRepository struct {
	db *personTable
}

var _ person.Repository = (*personRepository)(nil) // interface compliance check

func NewPersonRepository(db *DB) person.Repository {
	return &personRepository{db: db.person}
}

func (repo *personRepository) query() []person.Person {
	people := make([]person.Person, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		people = append(people, *p)
	}
	return people
}

func (repo *personRepository) CreatePerson(ctx context.Context, p person.Person, exec ...core.DBExecutor) (person.Person, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *personRepository) QueryPeople(ctx context.Context, filter *person.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]person.Person, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	people := repo.query()

	if filter != nil && filter.Search != "" {
		search := strings.ToLower(filter.Search)
		var filtered []person.Person
		for _, p := range people {
			if strings.Contains(strings.ToLower(p.Name), search) ||
				strings.Contains(strings.ToLower(p.Role), search) ||
				strings.Contains(strings.ToLower(p.Email), search) {
				filtered = append(filtered, p)
			}
		}
		people = filtered
	}
	if people != nil && filter != nil && filter.IsActive != nil {
		var filtered []person.Person
		for _, p := range people {
			if p.IsActive == *filter.IsActive {
				filtered = append(filtered, p)
			}
		}
		people = filtered
	}

	sort.Slice(people, func(i, j int) bool { return people[i].Name < people[j].Name })
	return people, nil
}

func (repo *personRepository) GetPerson(ctx context.Context, id string, exec ...core.DBExecutor) (person.Person, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return person.Person{}, person.ErrNotFound
}

func (repo *personRepository) UpdatePerson(ctx context.Context, p person.Person, isActive *bool, exec ...core.DBExecutor) (person.Person, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save set fields
	orig, ok := repo.db.table[p.ID]
	if !ok {
		return person.Person{}, person.ErrNotFound
	}
	if p.Name != "" {
		orig.Name = p.Name
	}
	if p.Role != "" {
		orig.Role = p.Role
	}
	if p.Email != "" {
		orig.Email = p.Email
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = p.UpdatedAt

	repo.db.table[p.ID] = orig
	return *orig, nil
}
