package tripadvisor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ternarybob/zola/internal/models"
)

// searchResponse is the body of /location/search
type searchResponse struct {
	Data []searchHit `json:"data"`
}

type searchHit struct {
	LocationID string `json:"location_id"`
	Name       string `json:"name"`
}

// Details is the subset of /location/{id}/details we consume
type Details struct {
	LocationID  string     `json:"location_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	WebURL      string     `json:"web_url"`
	Address     AddressObj `json:"address_obj"`
	Phone       string     `json:"phone"`
	PriceLevel  string     `json:"price_level"`
	Rating      flexFloat  `json:"rating"`
	Category    Named      `json:"category"`
	Amenities   []string   `json:"amenities"`
	Styles      []string   `json:"styles"`
	TripTypes   []Named    `json:"trip_types"`
}

// AddressObj is the structured address of a location
type AddressObj struct {
	AddressString string `json:"address_string"`
	Street1       string `json:"street1"`
	City          string `json:"city"`
	Country       string `json:"country"`
}

// Named is a {name, localized_name} pair used for categories and trip types
type Named struct {
	Name          string `json:"name"`
	LocalizedName string `json:"localized_name"`
}

func (n Named) label() string {
	if n.LocalizedName != "" {
		return n.LocalizedName
	}
	return n.Name
}

type photosResponse struct {
	Data []struct {
		Images map[string]struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"data"`
}

// firstURL returns the best available rendition of the first photo
func (p photosResponse) firstURL() string {
	if len(p.Data) == 0 {
		return ""
	}
	for _, size := range []string{"large", "medium", "original", "small", "thumbnail"} {
		if img, ok := p.Data[0].Images[size]; ok && img.URL != "" {
			return img.URL
		}
	}
	return ""
}

// flexFloat decodes numbers that the API sends either as JSON numbers or strings
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var n json.Number
		if jerr := json.Unmarshal(data, &n); jerr != nil {
			return err
		}
		v, err = n.Float64()
		if err != nil {
			return err
		}
	}
	*f = flexFloat(v)
	return nil
}

// ToPlace maps location details onto the domain place. fallback is used when
// the details carry no category.
func (d Details) ToPlace(fallback models.PlaceCategory) models.Place {
	category := models.ParsePlaceCategory(d.Category.Name)
	if d.Category.Name == "" {
		category = fallback
	}

	address := d.Address.AddressString
	if address == "" {
		parts := make([]string, 0, 3)
		for _, p := range []string{d.Address.Street1, d.Address.City, d.Address.Country} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		address = strings.Join(parts, ", ")
	}

	tripTypes := make([]string, 0, len(d.TripTypes))
	for _, tt := range d.TripTypes {
		if label := tt.label(); label != "" {
			tripTypes = append(tripTypes, label)
		}
	}

	return models.Place{
		ID:          d.LocationID,
		Name:        d.Name,
		Category:    category,
		Description: d.Description,
		Address:     address,
		Phone:       d.Phone,
		PriceLevel:  d.PriceLevel,
		Rating:      float64(d.Rating),
		Amenities:   nonNil(d.Amenities),
		Styles:      nonNil(d.Styles),
		TripTypes:   tripTypes,
		WebURL:      d.WebURL,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}

// categoryForQuery infers the search category from the last word of a query,
// e.g. "Lisbon restaurants". The empty string means no category filter.
func categoryForQuery(query string) (apiCategory string, category models.PlaceCategory) {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) < 2 {
		return "", models.PlaceCategoryOther
	}
	switch models.ParsePlaceCategory(fields[len(fields)-1]) {
	case models.PlaceCategoryHotel:
		return "hotels", models.PlaceCategoryHotel
	case models.PlaceCategoryRestaurant:
		return "restaurants", models.PlaceCategoryRestaurant
	case models.PlaceCategoryAttraction:
		return "attractions", models.PlaceCategoryAttraction
	}
	return "", models.PlaceCategoryOther
}

// searchTerm strips a trailing category word from query
func searchTerm(query string) string {
	if apiCategory, _ := categoryForQuery(query); apiCategory != "" {
		fields := strings.Fields(query)
		return strings.Join(fields[:len(fields)-1], " ")
	}
	return strings.TrimSpace(query)
}
