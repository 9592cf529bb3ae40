package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/person"
	"github.com/trezcool/tathmini/storage/database"
)

const personCols = "id, name, role, email, is_active, created_at, updated_at"

type personRepository struct {
	db *database.DB
}

var _ person.Repository = (*personRepository)(nil) // interface compliance check

func NewPersonRepository(db *database.DB) person.Repository {
	return &personRepository{db: db}
}

// ext resolves the executor to run on: the provided transaction if any,
// the repository's own handle otherwise.
func (repo *personRepository) ext(exec []core.DBExecutor) database.Ext {
	if len(exec) > 0 {
		if e, ok := exec[0].(database.Ext); ok {
			return e
		}
	}
	return repo.db
}

func (repo *personRepository) CreatePerson(ctx context.Context, p person.Person, exec ...core.DBExecutor) (person.Person, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := repo.ext(exec).NamedExecContext(ctx,
		`INSERT INTO person (id, name, role, email, is_active, created_at, updated_at)
		 VALUES (:id, :name, :role, :email, :is_active, :created_at, :updated_at)`, p)
	return p, err
}

func (repo *personRepository) QueryPeople(ctx context.Context, filter *person.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]person.Person, error) {
	query := "SELECT " + personCols + " FROM person"
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			where = append(where, "(name ILIKE $1 OR role ILIKE $1 OR email ILIKE $1)")
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			if len(args) == 1 {
				where = append(where, "is_active = $1")
			} else {
				where = append(where, "is_active = $2")
			}
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if len(ordering) > 0 {
		orders := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orders = append(orders, ord.String())
		}
		query += " ORDER BY " + strings.Join(orders, ", ")
	}

	people := make([]person.Person, 0)
	err := repo.ext(exec).SelectContext(ctx, &people, query, args...)
	return people, err
}

func (repo *personRepository) GetPerson(ctx context.Context, id string, exec ...core.DBExecutor) (person.Person, error) {
	var p person.Person
	err := repo.ext(exec).GetContext(ctx, &p, "SELECT "+personCols+" FROM person WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return person.Person{}, person.ErrNotFound
	}
	return p, err
}

func (repo *personRepository) UpdatePerson(ctx context.Context, p person.Person, isActive *bool, exec ...core.DBExecutor) (person.Person, error) {
	// only save set fields
	query := `UPDATE person
	          SET name = COALESCE(NULLIF($2, ''), name),
	              role = COALESCE(NULLIF($3, ''), role),
	              email = COALESCE(NULLIF($4, ''), email),
	              is_active = COALESCE($5, is_active),
	              updated_at = $6
	          WHERE id = $1`
	res, err := repo.ext(exec).ExecContext(ctx, query, p.ID, p.Name, p.Role, p.Email, isActive, p.UpdatedAt)
	if err != nil {
		return person.Person{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return person.Person{}, person.ErrNotFound
	}
	return repo.GetPerson(ctx, p.ID, exec...)
}
