package resolve

import (
	"html"
	"strings"

	"github.com/kashifkhan1020/KamiNewMods/internal/model"
)

// Insertion points for website composition.
const (
	AnchorHead = "</head>"
	AnchorBody = "</body>"
)

// Composition is a combined single-file document plus what the composer had
// to work around.
type Composition struct {
	HTML string
	// Wrapped is set when the uploaded HTML was a fragment and got the
	// default document skeleton.
	Wrapped bool
	// Missing lists anchors that were absent, so the matching source was
	// left out.
	Missing []string
}

// Compose injects CSS as a <style> block before </head> and JS as a <script>
// block before the final </body>. Anchors match case-insensitively. A
// fragment with no <html> tag and neither anchor is first wrapped in a
// minimal document.
func Compose(site model.Website, title string) Composition {
	doc := site.HTML
	var c Composition

	if indexFold(doc, "<html") < 0 && indexFold(doc, AnchorHead) < 0 && lastIndexFold(doc, AnchorBody) < 0 {
		doc = skeleton(title, doc)
		c.Wrapped = true
	}

	if site.CSS != "" {
		if i := indexFold(doc, AnchorHead); i >= 0 {
			doc = doc[:i] + "<style>\n" + site.CSS + "\n</style>\n" + doc[i:]
		} else {
			c.Missing = append(c.Missing, AnchorHead)
		}
	}
	if site.JS != "" {
		if i := lastIndexFold(doc, AnchorBody); i >= 0 {
			doc = doc[:i] + "<script>\n" + site.JS + "\n</script>\n" + doc[i:]
		} else {
			c.Missing = append(c.Missing, AnchorBody)
		}
	}

	c.HTML = doc
	return c
}

func skeleton(title, body string) string {
	if title == "" {
		title = "Combined Frontend Project"
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}

// indexFold finds an ASCII anchor ignoring case, returning a byte offset
// into s.
func indexFold(s, anchor string) int {
	n := len(anchor)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], anchor) {
			return i
		}
	}
	return -1
}

func lastIndexFold(s, anchor string) int {
	n := len(anchor)
	for i := len(s) - n; i >= 0; i-- {
		if strings.EqualFold(s[i:i+n], anchor) {
			return i
		}
	}
	return -1
}
