package report

import (
	"encoding/json"
	"strings"
)

const modulePreloadRel = "modulepreload"

type Formatter struct{}

func NewFormatter() Formatter {
	return Formatter{}
}

func (f Formatter) Format(preload Preload, format Format) (string, error) {
	switch format {
	case FormatList:
		if len(preload.Modules) == 0 {
			return "", nil
		}
		return strings.Join(preload.Modules, "\n") + "\n", nil
	case FormatLink:
		if len(preload.Modules) == 0 {
			return "", nil
		}
		return FormatLinkHeader(preload.Modules) + "\n", nil
	case FormatJSON:
		if preload.Modules == nil {
			preload.Modules = []string{}
		}
		payload, err := json.MarshalIndent(preload, "", "  ")
		if err != nil {
			return "", err
		}
		return string(payload) + "\n", nil
	default:
		return "", ErrUnknownFormat
	}
}

// FormatLinkRelation formats one resource as a Link header relation.
func FormatLinkRelation(resource string) string {
	return "<" + resource + `>; rel="` + modulePreloadRel + `"`
}

// FormatLinkHeader joins resources into a single Link header value.
func FormatLinkHeader(resources []string) string {
	relations := make([]string, 0, len(resources))
	for _, resource := range resources {
		relations = append(relations, FormatLinkRelation(resource))
	}
	return strings.Join(relations, ", ")
}
