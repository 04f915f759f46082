// Package api exposes the location service over HTTP with JSON and XML
// representations.
package api

import (
	"encoding/xml"

	"github.com/illmade-knight/location-api/pkg/locations"
)

// LocationList is the envelope returned when listing locations.
type LocationList struct {
	Locations []locations.Location `json:"locations"`
	NextPage  string               `json:"next-page,omitempty"`
}

// ErrorMessage conveys an error response.
type ErrorMessage struct {
	Message string `json:"message"`
}

// locationXML is the XML form of a location: <location id="..."><name/>...</location>.
type locationXML struct {
	XMLName   xml.Name `xml:"location"`
	ID        string   `xml:"id,attr,omitempty"`
	Name      string   `xml:"name"`
	Longitude float64  `xml:"longitude"`
	Latitude  float64  `xml:"latitude"`
}

type locationListXML struct {
	XMLName   xml.Name      `xml:"location-list"`
	NextPage  string        `xml:"next-page,attr,omitempty"`
	Locations []locationXML `xml:"locations>location"`
}

type errorMessageXML struct {
	XMLName xml.Name `xml:"error-message"`
	Message string   `xml:"message,attr"`
}

func toLocationXML(loc locations.Location) locationXML {
	return locationXML{ID: loc.ID, Name: loc.Name, Longitude: loc.Longitude, Latitude: loc.Latitude}
}

func fromLocationXML(doc locationXML) locations.Location {
	return locations.Location{ID: doc.ID, Name: doc.Name, Longitude: doc.Longitude, Latitude: doc.Latitude}
}

// xmlRepresentation maps a response body onto its XML form.
func xmlRepresentation(body any) any {
	switch v := body.(type) {
	case locations.Location:
		return toLocationXML(v)
	case LocationList:
		doc := locationListXML{NextPage: v.NextPage, Locations: make([]locationXML, 0, len(v.Locations))}
		for _, loc := range v.Locations {
			doc.Locations = append(doc.Locations, toLocationXML(loc))
		}
		return doc
	case ErrorMessage:
		return errorMessageXML{Message: v.Message}
	default:
		return body
	}
}
