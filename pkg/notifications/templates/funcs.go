// Package templates provides functions available to notification templates.
package templates

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nicholas-fedor/dockerpoller/pkg/sorter"
)

// Funcs are the functions notification templates may call.
var Funcs = template.FuncMap{
	"ToUpper":    strings.ToUpper,
	"ToLower":    strings.ToLower,
	"Title":      cases.Title(language.AmericanEnglish).String,
	"ToJSON":     toJSON,
	"TagVersion": tagVersion,
	"TagVariant": tagVariant,
	"SortTags":   sortTags,
}

// toJSON renders v as indented JSON. Encoding failures abort the template.
func toJSON(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render notification JSON: %w", err)
	}

	return string(out), nil
}

// tagVersion returns the part of tag before the first '-', e.g. "3.9" for "3.9-alpine".
func tagVersion(tag string) string {
	version, _, _ := strings.Cut(tag, "-")

	return version
}

// tagVariant returns the part of tag after the first '-', e.g. "alpine" for "3.9-alpine".
func tagVariant(tag string) string {
	_, variant, _ := strings.Cut(tag, "-")

	return variant
}

// sortTags returns a copy of tags in ascending version order.
func sortTags(tags []string) []string {
	sorted := slices.Clone(tags)
	sorter.SortByVersion(sorted)

	return sorted
}
