// Package datauri decodes base64 payloads that may carry a data URI prefix.
package datauri

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Decode returns the media type (empty when there is no data URI prefix) and
// the decoded bytes of s. Padded and unpadded base64 are both accepted, and
// whitespace inside the payload is ignored.
func Decode(s string) (string, []byte, error) {
	mediaType, payload, err := Split(s)
	if err != nil {
		return "", nil, err
	}
	data, err := DecodeBase64(payload)
	if err != nil {
		return "", nil, err
	}
	return mediaType, data, nil
}

// Split separates an optional "data:<type>;base64," prefix from the payload
func Split(s string) (mediaType, payload string, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return "", s, nil
	}

	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return "", "", fmt.Errorf("malformed data URI")
	}
	meta := s[len("data:"):comma]
	if semi := strings.IndexByte(meta, ';'); semi >= 0 {
		meta = meta[:semi]
	}
	return meta, s[comma+1:], nil
}

// DecodeBase64 decodes standard base64 with or without padding
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	if out, err := base64.StdEncoding.DecodeString(s); err == nil {
		return out, nil
	}
	out, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 data: %w", err)
	}
	return out, nil
}
