// Package media fetches transport files and inspects their content type.
package media

import (
	"github.com/gabriel-vasile/mimetype"
)

// DetectMIME returns the MIME type from magic bytes (not file extension)
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// IsOgg reports whether data is an Ogg container (any codec).
func IsOgg(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("application/ogg") {
			return true
		}
	}
	return false
}
