package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const pptxSlidePathPrefix = "ppt/slides/slide"

// atTag matches <a:t>text</a:t> with any attributes.
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

type pptxSlide struct {
	number int
	text   string
}

// extractPPTX returns one page per slide ordered by slide number, so slide10 follows slide9
// whatever order the archive stores them in.
func extractPPTX(content []byte) ([]string, error) {
	zr, err := openZip("PPTX", content)
	if err != nil {
		return nil, err
	}
	var slides []pptxSlide
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePathPrefix) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.Name, pptxSlidePathPrefix), ".xml"))
		if err != nil {
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return nil, fmt.Errorf("extract PPTX: %w", err)
		}
		var b strings.Builder
		for _, p := range atTag.FindAllStringSubmatch(string(data), -1) {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.TrimSpace(p[1]))
		}
		slides = append(slides, pptxSlide{number: num, text: strings.TrimSpace(b.String())})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	pages := make([]string, 0, len(slides))
	for _, s := range slides {
		pages = append(pages, s.text)
	}
	return pages, nil
}
