package inspect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
)

// Inspector parses markup and answers selector-based lookups
type Inspector struct{}

var _ interfaces.Inspector = &Inspector{}

// New creates an HTML inspector
func New() *Inspector {
	return &Inspector{}
}

func parse(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse markup")
	}
	return doc, nil
}

// Attr returns the value of an attribute on the first node matching the selector
func (x *Inspector) Attr(markup, selector, attr string) (string, bool, error) {
	doc, err := parse(markup)
	if err != nil {
		return "", false, err
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false, nil
	}

	value, ok := sel.Attr(attr)
	if !ok {
		return "", false, nil
	}
	return value, true, nil
}

// Text returns the text content of the first node matching the selector
func (x *Inspector) Text(markup, selector string) (string, bool, error) {
	doc, err := parse(markup)
	if err != nil {
		return "", false, err
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false, nil
	}
	return sel.Text(), true, nil
}

// JSONLDBlocks returns the raw contents of all JSON-LD script blocks
func (x *Inspector) JSONLDBlocks(markup string) ([]string, error) {
	doc, err := parse(markup)
	if err != nil {
		return nil, err
	}

	var blocks []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, s.Text())
	})
	return blocks, nil
}
