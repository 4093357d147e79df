package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Mood is the overall tone of a trip
type Mood string

const (
	MoodRelaxing    Mood = "relaxing"
	MoodAdventurous Mood = "adventurous"
	MoodRomantic    Mood = "romantic"
	MoodCultural    Mood = "cultural"
	MoodFoodie      Mood = "foodie"
)

// Moods lists the accepted moods in display order
var Moods = []Mood{MoodRelaxing, MoodAdventurous, MoodRomantic, MoodCultural, MoodFoodie}

// IsValid reports whether m is one of the known moods
func (m Mood) IsValid() bool {
	for _, known := range Moods {
		if m == known {
			return true
		}
	}
	return false
}

// Plan is the trip being assembled by the user
type Plan struct {
	DateFrom  *Date   `json:"dateFrom,omitempty"`
	DateTo    *Date   `json:"dateTo,omitempty"`
	Location  string  `json:"location"`
	NumPeople int     `json:"numPeople"`
	Budget    string  `json:"budget"`
	Mood      Mood    `json:"mood" validate:"omitempty,oneof=relaxing adventurous romantic cultural foodie"`
	Images    []Image `json:"images"`
	Itinerary *string `json:"itinerary,omitempty"`
	Locations []Place `json:"locations,omitempty"`
}

// NewDefaultPlan returns the plan created implicitly when an image is pinned
// before any plan exists
func NewDefaultPlan() Plan {
	return Plan{
		Location:  "",
		NumPeople: 1,
		Budget:    "",
		Mood:      MoodRelaxing,
		Images:    []Image{},
	}
}

// Clone returns a deep copy of the plan
func (p Plan) Clone() Plan {
	out := p
	if p.DateFrom != nil {
		d := *p.DateFrom
		out.DateFrom = &d
	}
	if p.DateTo != nil {
		d := *p.DateTo
		out.DateTo = &d
	}
	out.Images = make([]Image, 0, len(p.Images))
	for _, img := range p.Images {
		out.Images = append(out.Images, img.Clone())
	}
	if p.Itinerary != nil {
		s := *p.Itinerary
		out.Itinerary = &s
	}
	if p.Locations != nil {
		out.Locations = make([]Place, 0, len(p.Locations))
		for _, place := range p.Locations {
			out.Locations = append(out.Locations, place.Clone())
		}
	}
	return out
}

// Normalize enforces the plan invariants: unique image ids, at least one
// person and a known mood
func (p *Plan) Normalize() {
	if p.NumPeople < 1 {
		p.NumPeople = 1
	}
	if !p.Mood.IsValid() {
		p.Mood = MoodRelaxing
	}
	if p.Images == nil {
		p.Images = []Image{}
	} else {
		p.Images = DedupeImages(p.Images)
	}
}

// Validate rejects a mood outside the known set. An empty mood is accepted
// and becomes the default on Normalize.
func (p Plan) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

// UnmarshalJSON accepts numPeople as a number or a string, falling back to 1
// for anything that is not a positive integer
func (p *Plan) UnmarshalJSON(data []byte) error {
	type planAlias Plan
	aux := struct {
		*planAlias
		NumPeople *PeopleCount `json:"numPeople"`
	}{planAlias: (*planAlias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.NumPeople != nil {
		p.NumPeople = int(*aux.NumPeople)
	}
	return nil
}

// HasImage reports whether an image with id is part of the plan
func (p Plan) HasImage(id string) bool {
	for _, img := range p.Images {
		if img.ID == id {
			return true
		}
	}
	return false
}

// PlanUpdate is a partial plan; nil fields are left untouched by a merge
type PlanUpdate struct {
	DateFrom  *Date    `json:"dateFrom,omitempty"`
	DateTo    *Date    `json:"dateTo,omitempty"`
	Location  *string  `json:"location,omitempty"`
	NumPeople *int     `json:"numPeople,omitempty"`
	Budget    *string  `json:"budget,omitempty"`
	Mood      *Mood    `json:"mood,omitempty" validate:"omitempty,oneof=relaxing adventurous romantic cultural foodie"`
	Images    *[]Image `json:"images,omitempty"`
	Itinerary *string  `json:"itinerary,omitempty"`
	Locations *[]Place `json:"locations,omitempty"`
}

// Validate rejects a mood outside the known set
func (u PlanUpdate) Validate() error {
	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

// UnmarshalJSON accepts numPeople as a number or a string, like Plan
func (u *PlanUpdate) UnmarshalJSON(data []byte) error {
	type updateAlias PlanUpdate
	aux := struct {
		*updateAlias
		NumPeople *PeopleCount `json:"numPeople,omitempty"`
	}{updateAlias: (*updateAlias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.NumPeople != nil {
		n := int(*aux.NumPeople)
		u.NumPeople = &n
	}
	return nil
}

// Apply shallow-merges the present fields of u into p
func (u PlanUpdate) Apply(p *Plan) {
	if u.DateFrom != nil {
		d := *u.DateFrom
		p.DateFrom = &d
	}
	if u.DateTo != nil {
		d := *u.DateTo
		p.DateTo = &d
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.NumPeople != nil {
		p.NumPeople = *u.NumPeople
	}
	if u.Budget != nil {
		p.Budget = *u.Budget
	}
	if u.Mood != nil {
		p.Mood = *u.Mood
	}
	if u.Images != nil {
		p.Images = append([]Image(nil), (*u.Images)...)
	}
	if u.Itinerary != nil {
		s := *u.Itinerary
		p.Itinerary = &s
	}
	if u.Locations != nil {
		p.Locations = append([]Place(nil), (*u.Locations)...)
	}
}

// ParseNumPeople parses a party size, falling back to 1 for anything that is
// not a positive whole number. "2.0" counts as 2; "2.5" falls back.
func ParseNumPeople(raw string) int {
	s := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return 1
		}
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 1
	}
	return int(f)
}

// PeopleCount is a party size decoded from either a JSON number or a string
type PeopleCount int

// UnmarshalJSON never fails on content; unparseable values become 1
func (c *PeopleCount) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*c = PeopleCount(ParseNumPeople(n.String()))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = PeopleCount(ParseNumPeople(s))
		return nil
	}
	*c = 1
	return nil
}
