// FILE: locations/models.go

package locations

// Location represents a geotagged place in the system.
//
// A Location with an empty ID is a template: it is only valid as input to
// Create. Every Location handed out by a Store carries the ID it is keyed by.
type Location struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Longitude float64 `json:"longitude"` // Decimal degrees.
	Latitude  float64 `json:"latitude"`  // Decimal degrees.
}

// NewLocation returns a template with no ID, ready for Create.
func NewLocation(name string, longitude, latitude float64) Location {
	return Location{Name: name, Longitude: longitude, Latitude: latitude}
}

// IsTemplate reports whether the location has not been assigned an ID yet.
func (l Location) IsTemplate() bool {
	return l.ID == ""
}

// withID copies the template's values under the assigned identifier.
func (l Location) withID(id string) Location {
	l.ID = id
	return l
}
