package s3

import (
	"strings"
	"time"
)

// Bucket layout (all keys below KeyPrefix):
//
//	index.json                                        []IndexEntry (JSON)
//	catalogs/<catalog path>/catalog.json              ResourceCatalog (JSON)
//	data/<catalog path>/<resource>/<rep>/<day>.bin    samples of one UTC day
//
// A day object starts at 00:00:00 UTC and holds consecutive little-endian
// elements; a short object covers the beginning of its day only.

const (
	indexKey  = "index.json"
	dayLayout = "2006-01-02"
	dayExt    = ".bin"
	day       = 24 * time.Hour
)

// IndexEntry is one catalog listed in index.json.
type IndexEntry struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

type layout struct {
	prefix string
}

func newLayout(keyPrefix string) layout {
	if keyPrefix != "" && !strings.HasSuffix(keyPrefix, "/") {
		keyPrefix += "/"
	}
	return layout{prefix: keyPrefix}
}

func (l layout) index() string {
	return l.prefix + indexKey
}

func (l layout) catalog(catalogID string) string {
	return l.prefix + "catalogs" + catalogPath(catalogID) + "/catalog.json"
}

// catalogData is the prefix of every series of a catalog.
func (l layout) catalogData(catalogID string) string {
	return l.prefix + "data" + catalogPath(catalogID) + "/"
}

// series is the prefix of the day objects of one representation.
func (l layout) series(catalogID, resourceID, representationID string) string {
	return l.catalogData(catalogID) + resourceID + "/" + representationID + "/"
}

func (l layout) dayObject(series string, t time.Time) string {
	return series + t.UTC().Format(dayLayout) + dayExt
}

// catalogPath makes sure the catalog id starts with exactly one "/".
func catalogPath(catalogID string) string {
	return "/" + strings.TrimPrefix(catalogID, "/")
}

// parseDayObject parses "<day>.bin" into the start of the day.
func parseDayObject(name string) (time.Time, bool) {
	if !strings.HasSuffix(name, dayExt) {
		return time.Time{}, false
	}
	t, err := time.Parse(dayLayout, strings.TrimSuffix(name, dayExt))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// startOfDay truncates t to 00:00 UTC.
func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
