// Package htmltext turns HTML mail bodies into line-oriented text the
// extractor can read.
package htmltext

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blocks start a new line when rendered.
const blocks = "p, div, br, tr, li, h1, h2, h3, h4, h5, h6, table, pre, section, article"

// Text renders the body of an HTML document as plain text, one block
// element per line. Scripts and styles are dropped, as are blank lines.
func Text(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	doc.Find("script, style, head").Remove()
	doc.Find(blocks).Each(func(_ int, s *goquery.Selection) {
		s.BeforeHtml("\n")
		s.AfterHtml("\n")
	})
	doc.Find("td, th").Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var lines []string
	for _, line := range strings.Split(root.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
