package api

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/illmade-knight/location-api/pkg/locations"
)

const (
	contentTypeJSON = "application/json"
	contentTypeXML  = "application/xml"

	maxBodyBytes = 1 << 20
)

var (
	errNotAcceptable        = errors.New("none of the accepted media types can be produced")
	errUnsupportedMediaType = errors.New("unsupported media type")
	errEncoding             = errors.New("failed to encode response")
)

// acceptRange is one entry of an Accept header.
type acceptRange struct {
	mediaType string
	quality   float64
}

// negotiate picks the response content type from the Accept header, honouring
// q weights. JSON is the default and wins ties with wildcards; an Accept
// header naming neither JSON, XML nor a wildcard is not acceptable.
func negotiate(r *http.Request) (string, error) {
	accept := r.Header.Get("Accept")
	if strings.TrimSpace(accept) == "" {
		return contentTypeJSON, nil
	}

	var ranges []acceptRange
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		quality := 1.0
		if q, ok := params["q"]; ok {
			quality, err = strconv.ParseFloat(q, 64)
			if err != nil {
				continue
			}
		}
		if quality > 0 {
			ranges = append(ranges, acceptRange{mediaType: mediaType, quality: quality})
		}
	}
	slices.SortStableFunc(ranges, func(a, b acceptRange) int {
		switch {
		case a.quality > b.quality:
			return -1
		case a.quality < b.quality:
			return 1
		default:
			return 0
		}
	})

	for _, ar := range ranges {
		switch ar.mediaType {
		case contentTypeJSON, "*/*", "application/*":
			return contentTypeJSON, nil
		case contentTypeXML, "text/xml":
			return contentTypeXML, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errNotAcceptable, accept)
}

// decodeLocation reads a location from the request body in the format named
// by Content-Type. JSON is assumed when no Content-Type is given.
func decodeLocation(w http.ResponseWriter, r *http.Request) (locations.Location, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	mediaType := contentTypeJSON
	if ct := r.Header.Get("Content-Type"); ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return locations.Location{}, fmt.Errorf("%w: %s", errUnsupportedMediaType, ct)
		}
		mediaType = parsed
	}

	var loc locations.Location
	switch mediaType {
	case contentTypeJSON:
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&loc); err != nil {
			return locations.Location{}, malformed(err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return locations.Location{}, malformed(errors.New("unexpected data after location"))
		}
	case contentTypeXML, "text/xml":
		var doc locationXML
		if err := xml.NewDecoder(body).Decode(&doc); err != nil {
			return locations.Location{}, malformed(err)
		}
		loc = fromLocationXML(doc)
	default:
		return locations.Location{}, fmt.Errorf("%w: %s", errUnsupportedMediaType, mediaType)
	}

	if !finite(loc.Longitude) || !finite(loc.Latitude) {
		return locations.Location{}, fmt.Errorf("%w: coordinates must be finite numbers", locations.ErrInvalidArgument)
	}
	return loc, nil
}

func malformed(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return fmt.Errorf("%w: malformed location: %v", locations.ErrInvalidArgument, err)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// marshal renders body in the given content type.
func marshal(contentType string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if contentType == contentTypeXML {
		buf.WriteString(xml.Header)
		if err := xml.NewEncoder(&buf).Encode(xmlRepresentation(body)); err != nil {
			return nil, fmt.Errorf("%w: %w", errEncoding, err)
		}
		return buf.Bytes(), nil
	}
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("%w: %w", errEncoding, err)
	}
	return buf.Bytes(), nil
}

// encode writes body with the given status in the negotiated content type.
// Nothing is written when the body cannot be encoded; the returned error then
// wraps errEncoding.
func encode(w http.ResponseWriter, contentType string, status int, body any) error {
	data, err := marshal(contentType, body)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}
