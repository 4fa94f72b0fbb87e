// Package patients keeps the append-only log of submitted patient details.
package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	MinAge     = 0
	MaxAge     = 120
	DefaultAge = 25
)

var (
	ErrNameRequired  = errors.New("please enter patient name")
	ErrInvalidAge    = fmt.Errorf("age must be between %d and %d", MinAge, MaxAge)
	ErrInvalidGender = errors.New("gender must be Male, Female or Other")
)

// Genders lists the accepted gender values, in form order.
var Genders = []string{"Male", "Female", "Other"}

// Columns is the header of the patient log, in field order.
var Columns = []string{"Name", "Age", "Gender", "City", "State", "Country"}

// Record is one patient submission. The name as entered is the only identity.
type Record struct {
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Gender  string `json:"gender"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Store appends and lists patient records. Records are never updated or
// deleted.
type Store interface {
	Append(ctx context.Context, r Record) error
	List(ctx context.Context) ([]Record, error)
}

// Validate checks a record before it is written. Only the name is mandatory.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrNameRequired
	}
	if r.Age < MinAge || r.Age > MaxAge {
		return ErrInvalidAge
	}
	if !validGender(r.Gender) {
		return ErrInvalidGender
	}
	return nil
}

// Row returns the record's fields in Columns order.
func (r Record) Row() []any {
	return []any{r.Name, r.Age, r.Gender, r.City, r.State, r.Country}
}

func validGender(g string) bool {
	for _, want := range Genders {
		if g == want {
			return true
		}
	}
	return false
}
