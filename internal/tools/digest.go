package tools

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// StructuredDigest renders the text of a document body as one line per
// element that directly owns text, "<tag>text</tag>". Descendants of such an
// element are not visited; script, style and template are skipped.
func StructuredDigest(document string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("parse page content: %w", err)
	}

	var b strings.Builder
	doc.Find("body").Each(func(_ int, body *goquery.Selection) {
		for _, n := range body.Nodes {
			writeDigest(&b, n)
		}
	})
	return b.String(), nil
}

func writeDigest(b *strings.Builder, n *html.Node) {
	switch n.Data {
	case "script", "style", "template":
		return
	}

	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			continue
		}
		if text := strings.TrimSpace(c.Data); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, "<%s>%s</%s>\n", n.Data, strings.Join(parts, " "), n.Data)
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			writeDigest(b, c)
		}
	}
}
