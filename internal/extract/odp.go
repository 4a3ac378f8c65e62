package extract

import (
	"fmt"
	"regexp"
	"strings"
)

const openDocumentContentPath = "content.xml"

var (
	odfTextP    = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfTextSpan = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfTextH    = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)
)

// extractODP returns the text of an OpenDocument presentation.
func extractODP(content []byte) (string, error) {
	return extractOpenDocument("ODP", content, odfTextH, odfTextP, odfTextSpan)
}

// extractOpenDocument joins the inner text of every element matched by patterns, in pattern order.
func extractOpenDocument(format string, content []byte, patterns ...*regexp.Regexp) (string, error) {
	zr, err := openZip(format, content)
	if err != nil {
		return "", err
	}
	contentXML, err := readZipFile(zr, openDocumentContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	if contentXML == nil {
		return "", fmt.Errorf("extract %s: %s not found", format, openDocumentContentPath)
	}
	s := string(contentXML)
	var b strings.Builder
	for _, re := range patterns {
		for _, p := range re.FindAllStringSubmatch(s, -1) {
			text := strings.TrimSpace(p[1])
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}
	return b.String(), nil
}
