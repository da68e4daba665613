package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrDrugNotFound is returned when neither catalog table holds the drug
	ErrDrugNotFound = errors.New("drug not found")

	// ErrNoAlternativeFound is returned when no record reaches the requested bioavailability
	ErrNoAlternativeFound = errors.New("no alternative drug found")
)

// DrugNotFoundError carries the name the caller asked for
type DrugNotFoundError struct {
	Name string
}

func (e *DrugNotFoundError) Error() string {
	return fmt.Sprintf("drug %q not found in catalog", e.Name)
}

func (e *DrugNotFoundError) Unwrap() error {
	return ErrDrugNotFound
}
