package service

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidID is returned before any network call when an id is blank.
var ErrInvalidID = errors.New("id is required")

func idPath(prefix, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidID
	}
	return prefix + url.PathEscape(id), nil
}
