package classify

import (
	"strings"

	"github.com/ritzau/vitals-analyzer/pkg/model"
)

// Issue types produced by the rule table
const (
	ImageSizing      = "image-sizing"
	LCPImage         = "lcp-image"
	UnusedCode       = "unused-code"
	FontFormat       = "font-format"
	FontPreload      = "font-preload"
	ResourcePreload  = "resource-preload"
	ResourceHints    = "resource-hints"
	BlockingResource = "blocking-resource"
	InlineCSS        = "inline-css"
	LayoutShift      = "layout-shift"
	TTFB             = "ttfb"
	ThirdParty       = "third-party"
	JSExecution      = "js-execution"
	Interaction      = "interaction"
	Bundling         = "bundling"
	Compression      = "compression"

	General = "general"
)

// rule matches when every keyword in all is present and, if any is
// non-empty, at least one keyword in any is present
type rule struct {
	issueType string
	all       []string
	any       []string
}

func (r rule) matches(text string) bool {
	for _, kw := range r.all {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	if len(r.any) == 0 {
		return true
	}
	for _, kw := range r.any {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// rules is evaluated top to bottom; the first match wins.
// New rules go where their precedence belongs, existing entries stay untouched.
var rules = []rule{
	{issueType: ImageSizing, any: []string{"oversized", "image size", "properly size", "srcset", "responsive image", "image dimension", "resize"}},
	{issueType: LCPImage, all: []string{"lcp"}, any: []string{"image", "img", "hero", ".jpg", ".png", ".webp"}},
	{issueType: UnusedCode, any: []string{"unused", "dead code", "coverage"}},
	{issueType: FontFormat, all: []string{"font"}, any: []string{"format", "ttf", "otf", "convert", "subset"}},
	{issueType: FontPreload, all: []string{"font"}, any: []string{"preload"}},
	{issueType: ResourcePreload, any: []string{"preload", "fetchpriority", "fetch priority"}},
	{issueType: ResourceHints, any: []string{"preconnect", "dns-prefetch", "resource hint", "prefetch"}},
	{issueType: BlockingResource, any: []string{"render-blocking", "render blocking", "blocking"}},
	{issueType: InlineCSS, any: []string{"critical css", "inline css", "inline critical"}},
	{issueType: LayoutShift, any: []string{"layout shift", "cls", "shift", "without dimensions", "reserve space"}},
	{issueType: TTFB, any: []string{"ttfb", "time to first byte", "server response", "backend", "redirect"}},
	{issueType: ThirdParty, any: []string{"third-party", "third party", "3rd party", "analytics", "tag manager"}},
	{issueType: JSExecution, any: []string{"long task", "javascript execution", "js execution", "main thread", "script evaluation", "execution time"}},
	{issueType: Interaction, any: []string{"interaction", "event handler", "input delay"}},
	{issueType: Bundling, any: []string{"bundle", "code split", "code-split", "chunk", "tree shak"}},
	{issueType: Compression, any: []string{"compress", "gzip", "brotli", "minif"}},
}

// Classify maps a finding to a semantic issue type. It never returns an empty string.
func Classify(f model.Finding) string {
	text := strings.ToLower(f.Description + " " + f.Reference())

	for _, r := range rules {
		if r.matches(text) {
			return r.issueType
		}
	}

	if metric := strings.TrimSpace(f.Metric); metric != "" {
		return strings.ToLower(metric) + "-issue"
	}
	return General
}

// IssueTypes returns the rule-table types in evaluation order
func IssueTypes() []string {
	types := make([]string, len(rules))
	for i, r := range rules {
		types[i] = r.issueType
	}
	return types
}
