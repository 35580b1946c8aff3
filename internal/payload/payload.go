// Package payload implements the placeholder "FHE" transform applied to
// published content. It is an encoding, not encryption.
package payload

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const Prefix = "FHE-"

var ErrMalformed = errors.New("malformed payload")

// Content is the plaintext carried inside a payload.
type Content struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Encode produces FHE-<base64(json{title,content})>.
func Encode(title, body string) (string, error) {
	raw, err := json.Marshal(Content{Title: title, Content: body})
	if err != nil {
		return "", err
	}
	return Prefix + base64.StdEncoding.EncodeToString(raw), nil
}

// Decode reverses Encode. The prefix is optional, matching payloads written
// by clients that stored the bare base64 text.
func Decode(p string) (Content, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(p, Prefix))
	if err != nil {
		return Content{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var c *Content
	if err := json.Unmarshal(raw, &c); err != nil {
		return Content{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if c == nil {
		return Content{}, fmt.Errorf("%w: null payload", ErrMalformed)
	}
	return *c, nil
}
