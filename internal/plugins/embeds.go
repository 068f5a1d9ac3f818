package plugins

import (
	"fmt"
	"regexp"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

var (
	twitterStatusPattern = regexp.MustCompile(`^https?://(www\.)?twitter\.com/\S+/status(es)?/\S+`)
	mapSharePattern      = regexp.MustCompile(`/maps/place/([^/]+)/@([^/]+)/`)
)

const (
	defaultMapLoc   = "0, 0"
	defaultMapPlace = "Unknown"
)

// MapLocation is what a Google Maps share URL points at.
type MapLocation struct {
	Loc       string `json:"loc"`
	PlaceName string `json:"place_name"`
}

func (m MapLocation) String() string {
	return fmt.Sprintf("%s @%s", m.PlaceName, m.Loc)
}

// DefaultMapLocation is used before a share URL has been parsed.
func DefaultMapLocation() MapLocation {
	return MapLocation{Loc: defaultMapLoc, PlaceName: defaultMapPlace}
}

// ParseShareURL pulls the place name and "lat,lng,zoom" out of a maps share
// URL such as https://www.google.com/maps/place/Chippen+St/@-33.88,151.20,17z/data=...
func ParseShareURL(shareURL string) (MapLocation, error) {
	m := mapSharePattern.FindStringSubmatch(shareURL)
	if m == nil {
		return MapLocation{}, model.NewValidationError("share_url", "Please provide a valid map share link.")
	}
	return MapLocation{Loc: m[2], PlaceName: m[1]}, nil
}

func ValidateTwitterURL(u string) error {
	if u != "" && !twitterStatusPattern.MatchString(u) {
		return model.NewValidationError("url", "Please provide a valid twitter link.")
	}
	return nil
}
