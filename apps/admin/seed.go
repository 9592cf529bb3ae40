package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trezcool/tathmini/core/person"
)

var errRosterNotEmpty = errors.New("roster is not empty; refusing to seed")

// seed loads a sample executive roster into an empty database.
func (cli *commandLine) seed() error {
	ctx := context.Background()

	existing, err := cli.personRepo.QueryPeople(ctx, nil, nil)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return errRosterNotEmpty
	}

	now := time.Now().UTC()
	samples := []person.Person{
		{Name: "Amina Juma", Role: "CEO", Email: "amina@example.com"},
		{Name: "Baraka Otieno", Role: "CTO", Email: "baraka@example.com"},
		{Name: "Neema Said", Role: "CFO", Email: "neema@example.com"},
		{Name: "David Kim", Role: "COO", Email: "david@example.com"},
		{Name: "Zawadi Mushi", Role: "CMO", Email: "zawadi@example.com"},
	}
	for _, p := range samples {
		p.IsActive = true
		p.CreatedAt = now
		p.UpdatedAt = now
		if _, err := cli.personRepo.CreatePerson(ctx, p); err != nil {
			return err
		}
	}
	fmt.Printf("seeded %d people\n", len(samples))
	return nil
}
