package validate

import (
	"regexp"
	"strings"
)

var (
	// Request names: start with a letter, then letters/digits/_/-, 3-50 total.
	reName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{2,49}$`)
	reUPC  = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	// A plain numeric UPC as stored in the catalog.
	reUPCPattern = regexp.MustCompile(`^[0-9]{8,14}$`)
)

// RequestName validates and normalizes a pick request name. Names are stored
// lowercase so lookups are case-insensitive.
func RequestName(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, " ") {
		return "", false
	}
	if !reName.MatchString(s) {
		return "", false
	}
	return strings.ToLower(s), true
}

// ScannedCode validates a raw barcode string (manual entry or decoded frame).
// Scanner noise means these can be longer than a stored UPC.
func ScannedCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 64 {
		return "", false
	}
	return s, reUPC.MatchString(s)
}

// UPCPattern reports whether s looks like a bare catalog UPC (digits, 8-14).
func UPCPattern(s string) bool {
	return reUPCPattern.MatchString(s)
}

// Quantity checks a requested or picked quantity against an upper bound.
func Quantity(n, max int) bool {
	return n >= 0 && n <= max
}

const MaxRequestedQty = 9999
