package cli

import (
	"github.com/hyperjump/tanya/internal/models"
)

// Guidance returns a one-line hint for the user on how to recover from err, or "" when
// there is nothing specific to suggest.
func Guidance(err error) string {
	switch models.KindOf(err) {
	case models.KindConfiguration:
		return "Check your configuration file and environment variables (see `tanya config init`)."
	case models.KindEmptyInput:
		return "No text could be extracted. Scanned PDFs need OCR first; check that the files are not empty."
	case models.KindProvider:
		return "The model provider rejected the request. Check your API key, quota, model name and network."
	case models.KindIndexQuery:
		return "The knowledge base could not be searched. Rebuild it with :reset."
	case models.KindNotReady:
		return "Load documents first."
	case models.KindNotFound:
		return "The session no longer exists. Create a new one."
	default:
		return ""
	}
}
