package badger

import (
	"encoding/binary"
	"math"
	"time"
)

// Database Key Namespace Design
// ==============================
//
// Data Type      Prefix  Key Format                                   Value
// ==========================================================================
// Registrations  "r:"    r:<parent>\x00<path>                         CatalogRegistration (JSON)
// Catalogs       "c:"    c:<catalogID>                                ResourceCatalog (JSON)
// Samples        "d:"    d:<catalogID>\x00<resourceID>\x00<repID>\x00<ts>  one element, little endian
//
// <ts> is the sample time in Unix nanoseconds as 8 big-endian bytes with the
// sign bit flipped, so that keys of one series sort chronologically and a
// series can be range scanned from begin to end. Only instants between
// minTimestamp and maxTimestamp (years 1677 to 2262) can be stored; query
// bounds outside that range are clamped to it.

const (
	prefixRegistration = "r:"
	prefixCatalog      = "c:"
	prefixData         = "d:"

	separator = "\x00"

	timestampSize = 8
)

var (
	minTimestamp = time.Unix(0, math.MinInt64).UTC()
	maxTimestamp = time.Unix(0, math.MaxInt64).UTC()
)

func keyRegistrationPrefix(parent string) []byte {
	return []byte(prefixRegistration + parent + separator)
}

func keyRegistration(parent, path string) []byte {
	return []byte(prefixRegistration + parent + separator + path)
}

func keyCatalog(catalogID string) []byte {
	return []byte(prefixCatalog + catalogID)
}

// keyCatalogData is the prefix of every series of a catalog.
func keyCatalogData(catalogID string) []byte {
	return []byte(prefixData + catalogID + separator)
}

// keySeries is the prefix of one series.
func keySeries(catalogID, resourceID, representationID string) []byte {
	return []byte(prefixData + catalogID + separator + resourceID + separator + representationID + separator)
}

// keySample appends the encoded timestamp to a series prefix.
func keySample(series []byte, t time.Time) []byte {
	key := make([]byte, len(series), len(series)+timestampSize)
	copy(key, series)
	return binary.BigEndian.AppendUint64(key, encodeTimestamp(t))
}

func encodeTimestamp(t time.Time) uint64 {
	return uint64(clampTimestamp(t).UnixNano()) ^ (1 << 63)
}

// clampTimestamp limits t to the instants UnixNano can represent.
func clampTimestamp(t time.Time) time.Time {
	switch {
	case t.Before(minTimestamp):
		return minTimestamp
	case t.After(maxTimestamp):
		return maxTimestamp
	}
	return t
}

// storable reports whether a sample at t keeps its own key.
func storable(t time.Time) bool {
	return !t.Before(minTimestamp) && !t.After(maxTimestamp)
}

func decodeTimestamp(b []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(b)^(1<<63))).UTC()
}

// splitSampleKey splits the part of a sample key following keyCatalogData
// into its series name ("<resourceID>\x00<repID>") and timestamp.
func splitSampleKey(rest []byte) (series string, t time.Time, ok bool) {
	n := len(rest) - timestampSize - len(separator)
	if n <= 0 || string(rest[n:n+len(separator)]) != separator {
		return "", time.Time{}, false
	}
	return string(rest[:n]), decodeTimestamp(rest[n+len(separator):]), true
}
