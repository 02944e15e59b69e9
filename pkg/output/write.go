package output

import (
	"fmt"
	"io"

	"github.com/ritzau/vitals-analyzer/pkg/pipeline"
)

// Supported report formats
const (
	FormatMarkdown    = "markdown"
	FormatConsole     = "console"
	FormatJSON        = "json"
	FormatSuggestions = "suggestions"
)

// Write renders a run result in the given format
func Write(w io.Writer, format string, res *pipeline.Result) error {
	switch format {
	case FormatMarkdown, "md", "":
		return RenderMarkdown(w, res)
	case FormatConsole:
		PrintReport(w, res)
		return nil
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatSuggestions:
		return WriteSuggestions(w, ExportSuggestions(res.Graph))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
