// internal/compositor/booking.go
package compositor

import (
	"strconv"
	"strings"

	jmes "github.com/jmespath/go-jmespath"
)

// Booking keeps the upstream payload opaque. The schema is whatever the API
// returns per microsite; only Summary extracts a small typed view.
type Booking struct {
	Raw map[string]any `json:"raw"`
}

// Summary is the typed slice of a booking the rest of the system relies on.
type Summary struct {
	ID              string  `json:"id"`
	Reference       string  `json:"reference"`
	CustomReference string  `json:"customReference,omitempty"`
	Title           string  `json:"title,omitempty"`
	StartDate       string  `json:"startDate,omitempty"`
	EndDate         string  `json:"endDate,omitempty"`
	PriceAmount     float64 `json:"priceAmount,omitempty"`
	Currency        string  `json:"currency,omitempty"`
	Destinations    int     `json:"destinations,omitempty"`
}

// Extraction paths over the raw payload. Microsites disagree on field names,
// so each path is an or-chain of the observed variants.
const (
	pathID           = "id || bookingId"
	pathReference    = "bookingReference || reference"
	pathCustomRef    = "customBookingReference || customReference"
	pathTitle        = "title || name || tripName"
	pathStartDate    = "startDate || departureDate || start"
	pathEndDate      = "endDate || returnDate || end"
	pathPrice        = "pricing.totalPrice.amount || totalPrice.amount || pricing.total || totalPrice || price.amount"
	pathCurrency     = "pricing.totalPrice.currency || totalPrice.currency || pricing.currency || currency || price.currency"
	pathDestinations = "length(destinations || itinerary.destinations || `[]`)"
)

// Summary is a pure mapping; it never mutates Raw.
func (b Booking) Summary() Summary {
	return Summary{
		ID:              searchString(pathID, b.Raw),
		Reference:       searchString(pathReference, b.Raw),
		CustomReference: searchString(pathCustomRef, b.Raw),
		Title:           searchString(pathTitle, b.Raw),
		StartDate:       searchString(pathStartDate, b.Raw),
		EndDate:         searchString(pathEndDate, b.Raw),
		PriceAmount:     searchFloat(pathPrice, b.Raw),
		Currency:        searchString(pathCurrency, b.Raw),
		Destinations:    int(searchFloat(pathDestinations, b.Raw)),
	}
}

// ID returns the best available identifier, falling back through the
// reference variants.
func (b Booking) ID() string {
	if id := searchString(pathID, b.Raw); id != "" {
		return id
	}
	return searchString(pathReference, b.Raw)
}

// MatchesReference reports whether ref matches the booking's id, reference or
// custom reference, case-insensitively.
func (b Booking) MatchesReference(ref string) bool {
	want := strings.ToLower(strings.TrimSpace(ref))
	if want == "" {
		return false
	}
	for _, p := range []string{pathID, pathReference, pathCustomRef} {
		if v := searchString(p, b.Raw); v != "" && strings.ToLower(v) == want {
			return true
		}
	}
	return false
}

func searchString(path string, doc map[string]any) string {
	v, err := jmes.Search(path, doc)
	if err != nil || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func searchFloat(path string, doc map[string]any) float64 {
	v, err := jmes.Search(path, doc)
	if err != nil || v == nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	}
	return 0
}
