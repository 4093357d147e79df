package models

import "strings"

// PlaceCategory classifies a recommended place
type PlaceCategory string

const (
	PlaceCategoryHotel      PlaceCategory = "hotel"
	PlaceCategoryRestaurant PlaceCategory = "restaurant"
	PlaceCategoryAttraction PlaceCategory = "attraction"
	PlaceCategoryOther      PlaceCategory = "other"
)

// ParsePlaceCategory maps provider category names (singular or plural) onto a category
func ParsePlaceCategory(name string) PlaceCategory {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hotel", "hotels", "lodging":
		return PlaceCategoryHotel
	case "restaurant", "restaurants":
		return PlaceCategoryRestaurant
	case "attraction", "attractions":
		return PlaceCategoryAttraction
	default:
		return PlaceCategoryOther
	}
}

// Place is a point of interest recommended alongside an itinerary
type Place struct {
	ID          string        `json:"location_id"`
	Name        string        `json:"name"`
	Category    PlaceCategory `json:"category"`
	Description string        `json:"description"`
	Address     string        `json:"address"`
	Phone       string        `json:"phone,omitempty"`
	PriceLevel  string        `json:"price_level,omitempty"`
	Rating      float64       `json:"rating"`
	Amenities   []string      `json:"amenities"`
	Styles      []string      `json:"styles"`
	TripTypes   []string      `json:"trip_types"`
	WebURL      string        `json:"web_url,omitempty"`
	PhotoURL    string        `json:"photo_url,omitempty"`
}

// Clone returns a copy that shares no slices with the receiver
func (p Place) Clone() Place {
	out := p
	out.Amenities = append([]string(nil), p.Amenities...)
	out.Styles = append([]string(nil), p.Styles...)
	out.TripTypes = append([]string(nil), p.TripTypes...)
	return out
}

// LocationsResult is the response of a place lookup
type LocationsResult struct {
	Locations  []Place `json:"locations"`
	TotalCount int     `json:"total_count"`
}

// ItineraryResult is the response of an itinerary generation
type ItineraryResult struct {
	Itinerary string  `json:"itinerary"`
	Locations []Place `json:"locations,omitempty"`
}
