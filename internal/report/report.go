package report

import (
	"errors"
	"fmt"
	"strings"
)

type Format string

const (
	FormatList Format = "list"
	FormatLink Format = "link"
	FormatJSON Format = "json"
)

const SchemaVersion = "0.1.0"

var ErrUnknownFormat = errors.New("unknown format")

func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatList):
		return FormatList, nil
	case string(FormatLink):
		return FormatLink, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, value)
	}
}

// Preload is the outcome of one resolution. Modules is nil when there is
// nothing to preload.
type Preload struct {
	SchemaVersion string   `json:"schemaVersion"`
	URL           string   `json:"url"`
	Modules       []string `json:"modules"`
}

func NewPreload(url string, modules []string) Preload {
	return Preload{
		SchemaVersion: SchemaVersion,
		URL:           url,
		Modules:       modules,
	}
}
