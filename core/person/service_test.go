package person_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/person"
	dummydb "github.com/trezcool/tathmini/storage/database/dummy"
)

var ctx = context.Background()

func setup(t *testing.T) (person.Service, person.Repository) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup(): %v", err)
	}
	repo := dummydb.NewPersonRepository(db)
	return person.NewService(repo), repo
}

func createPerson(t *testing.T, repo person.Repository, name, role string, isActive bool) person.Person {
	now := time.Now().UTC()
	p, err := repo.CreatePerson(ctx, person.Person{
		Name:      name,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createPerson(): %v", err)
	}
	return p
}

func TestService_Create(t *testing.T) {
	svc, _ := setup(t)

	np := person.NewPerson{Name: "  Amina Juma ", Role: "CEO", Email: "AMINA@Test.CD"}
	assert.NoError(t, np.Validate(svc))
	assert.Equal(t, "Amina Juma", np.Name)
	assert.Equal(t, "amina@test.cd", np.Email)

	p, err := svc.Create(ctx, np)
	assert.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.IsActive)
}

func TestNewPerson_Validate(t *testing.T) {
	svc, _ := setup(t)

	tests := []struct {
		name    string
		np      person.NewPerson
		wantErr bool
	}{
		{"valid", person.NewPerson{Name: "Amina Juma", Role: "CEO"}, false},
		{"valid with email", person.NewPerson{Name: "Amina Juma", Role: "CEO", Email: "a@test.cd"}, false},
		{"missing name", person.NewPerson{Role: "CEO"}, true},
		{"missing role", person.NewPerson{Name: "Amina Juma"}, true},
		{"bad email", person.NewPerson{Name: "Amina Juma", Role: "CEO", Email: "nope"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.np.Validate(svc)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestService_CheckNameSimilarity(t *testing.T) {
	svc, repo := setup(t)

	createPerson(t, repo, "Jonathan Smith", "CTO", true)
	createPerson(t, repo, "Gone Guy", "COO", false) // inactive: ignored

	t.Run("near-duplicate rejected", func(t *testing.T) {
		err := svc.CheckNameSimilarity("Jonathan Smyth")
		vErr, ok := err.(*core.ValidationError)
		assert.True(t, ok)
		assert.Equal(t, "name", vErr.Fields[0].Field)
	})

	t.Run("case is ignored", func(t *testing.T) {
		assert.Error(t, svc.CheckNameSimilarity("JONATHAN SMITH"))
	})

	t.Run("distinct name accepted", func(t *testing.T) {
		assert.NoError(t, svc.CheckNameSimilarity("Amina Juma"))
	})

	t.Run("inactive people are not compared", func(t *testing.T) {
		assert.NoError(t, svc.CheckNameSimilarity("Gone Guy"))
	})
}

func TestService_Query(t *testing.T) {
	svc, repo := setup(t)

	amina := createPerson(t, repo, "Amina Juma", "CEO", true)
	baraka := createPerson(t, repo, "Baraka Otieno", "CTO", true)
	gone := createPerson(t, repo, "Gone Guy", "COO", false)
	bPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name   string
		filter *person.QueryFilter
		want   []person.Person
	}{
		{"all", nil, []person.Person{amina, baraka, gone}},
		{"search name", &person.QueryFilter{Search: "bara"}, []person.Person{baraka}},
		{"search role", &person.QueryFilter{Search: "ceo"}, []person.Person{amina}},
		{"search unknown", &person.QueryFilter{Search: "lol"}, nil},
		{"active only", &person.QueryFilter{IsActive: bPtr(true)}, []person.Person{amina, baraka}},
		{"inactive only", &person.QueryFilter{IsActive: bPtr(false)}, []person.Person{gone}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(ctx, tt.filter)
			assert.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestService_Deactivate(t *testing.T) {
	svc, repo := setup(t)

	p := createPerson(t, repo, "Amina Juma", "CEO", true)

	p, err := svc.Deactivate(ctx, p.ID)
	assert.NoError(t, err)
	assert.False(t, p.IsActive)

	active, err := svc.QueryActive(ctx)
	assert.NoError(t, err)
	assert.Len(t, active, 0)

	_, err = svc.Deactivate(ctx, "nope")
	assert.Equal(t, person.ErrNotFound, err)
}
