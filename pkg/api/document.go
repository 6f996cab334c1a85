package api

import "strings"

// Document is the ordered list of OCR lines for one invoice image, top to bottom.
type Document []string

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ParseDocument splits recognized text into lines.
// CRLF and lone CR are treated as line breaks; empty text has no lines.
func ParseDocument(text string) Document {
	if text == "" {
		return Document{}
	}
	text = lineBreaks.Replace(text)
	return Document(strings.Split(strings.TrimSuffix(text, "\n"), "\n"))
}

// Text joins the lines back with LF.
func (d Document) Text() string {
	return strings.Join(d, "\n")
}

// Window returns up to n lines starting at index from, clipped to the document.
func (d Document) Window(from, n int) Document {
	if from < 0 {
		from = 0
	}
	if from >= len(d) || n <= 0 {
		return nil
	}
	to := min(from+n, len(d))
	return d[from:to]
}
