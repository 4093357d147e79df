package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// TripParams is the raw input collected by the trip panel
type TripParams struct {
	DateFrom  string      `json:"dateFrom" validate:"omitempty,max=40"`
	DateTo    string      `json:"dateTo" validate:"omitempty,max=40"`
	Location  string      `json:"location" validate:"max=200"`
	NumPeople PeopleCount `json:"numPeople"`
	Budget    string      `json:"budget" validate:"max=100"`
	Mood      Mood        `json:"mood" validate:"omitempty,oneof=relaxing adventurous romantic cultural foodie"`
}

// Validate checks field shapes and that the date range is ordered
func (t TripParams) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	from, err := ParseOptionalDate(t.DateFrom)
	if err != nil {
		return fmt.Errorf("%w: dateFrom: %w", ErrInvalidParams, err)
	}
	to, err := ParseOptionalDate(t.DateTo)
	if err != nil {
		return fmt.Errorf("%w: dateTo: %w", ErrInvalidParams, err)
	}
	if from != nil && to != nil && to.Before(from.Time) {
		return fmt.Errorf("%w: dateTo %s is before dateFrom %s", ErrInvalidParams, to, from)
	}
	return nil
}

// ToPlan builds a plan from the parameters. Call Validate first; unparseable
// dates are dropped.
func (t TripParams) ToPlan() Plan {
	plan := NewDefaultPlan()
	plan.DateFrom, _ = ParseOptionalDate(t.DateFrom)
	plan.DateTo, _ = ParseOptionalDate(t.DateTo)
	plan.Location = strings.TrimSpace(t.Location)
	plan.NumPeople = int(t.NumPeople)
	plan.Budget = strings.TrimSpace(t.Budget)
	if t.Mood != "" {
		plan.Mood = t.Mood
	}
	plan.Normalize()
	return plan
}
