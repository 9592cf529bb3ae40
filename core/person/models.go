package person

import (
	"time"

	"github.com/trezcool/tathmini/core"
)

// Person is an evaluable member of the executive roster.
// Deactivation is a soft-delete: historical assignments and responses
// referencing a Person are never removed.
type Person struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	Email     string    `json:"email,omitempty" db:"email"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewPerson contains information needed to add a Person to the roster.
type NewPerson struct {
	Name  string `json:"name" validate:"required"`
	Role  string `json:"role" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (np *NewPerson) Validate(svc Service) error {
	np.Name = core.CleanString(np.Name)
	np.Role = core.CleanString(np.Role)
	np.Email = core.CleanString(np.Email, true /* lower */)

	if err := core.Validate.Struct(np); err != nil {
		return err
	}
	return svc.CheckNameSimilarity(np.Name)
}

// UpdatePerson defines what information may be provided to modify an existing Person.
type UpdatePerson struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Email    string `json:"email" validate:"omitempty,email"`
	IsActive *bool  `json:"is_active"`
}

func (up *UpdatePerson) Validate(orig Person) error {
	name := core.CleanString(up.Name)
	if name != "" {
		up.Name = name
	} else {
		up.Name = orig.Name
	}

	role := core.CleanString(up.Role)
	if role != "" {
		up.Role = role
	} else {
		up.Role = orig.Role
	}

	up.Email = core.CleanString(up.Email, true /* lower */)
	if up.Email == "" {
		up.Email = orig.Email
	}

	return core.Validate.Struct(up)
}

type QueryFilter struct {
	Search   string `query:"search"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
