package control

import (
	"encoding/hex"
	"strings"
)

// decodeHex decodes the hex-bytes payload of a DEBUG:<hex> command. The
// wire format allows (and the spec's own scenario text uses) spaces
// between byte pairs, e.g. "45 DE AD"; strip them before handing the
// string to the stdlib decoder, which rejects whitespace outright.
func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.ReplaceAll(s, " ", ""))
}

// encodeHex encodes a response frame back to the hex-bytes wire format.
func encodeHex(b []byte) string {
	return hex.EncodeToString(b)
}
