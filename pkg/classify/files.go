package classify

import (
	"regexp"
	"strings"

	"github.com/ritzau/vitals-analyzer/pkg/model"
)

// woff2 must come before woff so the longer extension wins
var fileTokenRe = regexp.MustCompile(`(?i)([a-z0-9_\-.]+\.(?:woff2|woff|js|css|jpg|png|webp))(?:$|[^a-z0-9])`)

// FileName returns the first name.ext token found in text, lower-cased, or ""
func FileName(text string) string {
	m := fileTokenRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToLower(strings.TrimLeft(m[1], "."))
}

// ExtractFile finds the file a finding is about. Sources are scanned in
// priority order: evidence reference, description, raw finding text
// (reasoning mechanism and root cause hint), attached resources.
func ExtractFile(f model.Finding) string {
	candidates := []string{f.Reference(), f.Description}
	if f.Reasoning != nil {
		candidates = append(candidates, f.Reasoning.Mechanism)
	}
	candidates = append(candidates, f.RootCause)
	candidates = append(candidates, f.Resources...)

	for _, text := range candidates {
		if name := FileName(text); name != "" {
			return name
		}
	}
	return ""
}

// ReferenceFile resolves only the evidence reference to a file name
func ReferenceFile(f model.Finding) string {
	return FileName(f.Reference())
}
