// file: internals/features/correction/textproc/processor.go
package textproc

import (
	"html"
	"log"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
)

// blocks that get a paragraph number; nested blocks share their parent's
const blockSelector = "p, li, h1, h2, h3, h4, h5, h6, pre, blockquote, td, th"

// WordTag wraps every word so comments can be anchored to word positions.
const WordTag = "w-p"

/*
Processor prepares the authored essay for the corrector app:

  - plain text without block markup is split into <p> per line
  - every outermost block gets data-p="N" (paragraph number, 1-based)
  - every word is wrapped as <w-p w="N">word</w-p> (word position, 1-based)

The output depends only on the input.
*/
type Processor struct{}

func New() *Processor { return &Processor{} }

func (p *Processor) ProcessWrittenText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		log.Printf("[TextProcessor] parse failed, falling back to escaped text: %v", err)
		return html.EscapeString(raw)
	}
	body := doc.Find("body")
	body.Find("script, style").Remove()

	if body.Find(blockSelector).Length() == 0 {
		body.SetHtml(linesToParagraphs(body.Text()))
	}

	para := 0
	body.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		para++
		s.SetAttr("data-p", strconv.Itoa(para))
	})

	if len(body.Nodes) > 0 {
		wrapWords(body.Nodes[0])
	}

	out, err := body.Html()
	if err != nil {
		log.Printf("[TextProcessor] render failed: %v", err)
		return html.EscapeString(raw)
	}
	return out
}

func linesToParagraphs(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</p>")
	}
	return b.String()
}

func wrapWords(root *xhtml.Node) {
	var texts []*xhtml.Node
	var collect func(n *xhtml.Node)
	collect = func(n *xhtml.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case xhtml.TextNode:
				texts = append(texts, c)
			case xhtml.ElementNode:
				collect(c)
			}
		}
	}
	collect(root)

	word := 0
	for _, t := range texts {
		parent := t.Parent
		for _, part := range splitKeepSpace(t.Data) {
			if strings.TrimSpace(part) == "" {
				parent.InsertBefore(&xhtml.Node{Type: xhtml.TextNode, Data: part}, t)
				continue
			}
			word++
			el := &xhtml.Node{
				Type: xhtml.ElementNode,
				Data: WordTag,
				Attr: []xhtml.Attribute{{Key: "w", Val: strconv.Itoa(word)}},
			}
			el.AppendChild(&xhtml.Node{Type: xhtml.TextNode, Data: part})
			parent.InsertBefore(el, t)
		}
		parent.RemoveChild(t)
	}
}

// splitKeepSpace cuts s into alternating runs of space and non-space.
func splitKeepSpace(s string) []string {
	var parts []string
	start := 0
	inSpace := false
	for i, r := range s {
		sp := unicode.IsSpace(r)
		if i == 0 {
			inSpace = sp
			continue
		}
		if sp != inSpace {
			parts = append(parts, s[start:i])
			start = i
			inSpace = sp
		}
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}
