package sandbox

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DOM is a read-mostly document proxy parsed from the preview markup.
// Scripts query it through document.querySelector and friends; mutations
// are recorded so the host can report what a run changed.
type DOM struct {
	mu      sync.Mutex
	doc     *goquery.Document
	changes []Change
}

// Change records a DOM mutation performed by a script.
type Change struct {
	Type     string `json:"type"`
	Selector string `json:"selector"`
	Property string `json:"property,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Element is a snapshot of a matched node plus a handle for mutation.
type Element struct {
	TagName     string
	ID          string
	ClassName   string
	TextContent string
	Attributes  map[string]string

	dom *DOM
	sel *goquery.Selection
}

// NewDOM parses markup into a queryable document. Parsing is forgiving;
// malformed markup yields a best-effort tree, never an error.
func NewDOM(markup string) *DOM {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return &DOM{doc: doc}
}

// Query returns all elements matching a CSS selector.
func (d *DOM) Query(selector string) []*Element {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.doc == nil {
		return nil
	}

	var results []*Element
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		results = append(results, d.element(s))
	})
	return results
}

// QueryOne returns the first element matching a CSS selector, or nil.
func (d *DOM) QueryOne(selector string) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.doc == nil {
		return nil
	}

	s := d.doc.Find(selector).First()
	if s.Length() == 0 {
		return nil
	}
	return d.element(s)
}

// Changes returns all mutations recorded since parsing.
func (d *DOM) Changes() []Change {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Change, len(d.changes))
	copy(out, d.changes)
	return out
}

// Markup serializes the document body, including script mutations.
func (d *DOM) Markup() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.doc == nil {
		return ""
	}
	out, err := d.doc.Find("body").Html()
	if err != nil {
		return ""
	}
	return out
}

func (d *DOM) element(s *goquery.Selection) *Element {
	e := &Element{
		TextContent: s.Text(),
		Attributes:  make(map[string]string),
		dom:         d,
		sel:         s,
	}
	if node := s.Get(0); node != nil && node.Type == html.ElementNode {
		e.TagName = strings.ToUpper(node.Data)
		for _, a := range node.Attr {
			e.Attributes[a.Key] = a.Val
		}
	}
	e.ID = e.Attributes["id"]
	e.ClassName = e.Attributes["class"]
	return e
}

// SetText replaces the element's text content.
func (e *Element) SetText(text string) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()

	e.sel.SetText(text)
	e.TextContent = text
	e.dom.changes = append(e.dom.changes, Change{
		Type:     "text",
		Selector: e.describe(),
		Value:    text,
	})
}

// SetAttribute sets an attribute on the element.
func (e *Element) SetAttribute(name, value string) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()

	e.sel.SetAttr(name, value)
	e.Attributes[name] = value
	switch name {
	case "id":
		e.ID = value
	case "class":
		e.ClassName = value
	}
	e.dom.changes = append(e.dom.changes, Change{
		Type:     "attribute",
		Selector: e.describe(),
		Property: name,
		Value:    value,
	})
}

// GetAttribute returns an attribute value, or "" when absent.
func (e *Element) GetAttribute(name string) string {
	return e.Attributes[name]
}

func (e *Element) describe() string {
	if e.ID != "" {
		return "#" + e.ID
	}
	if e.ClassName != "" {
		return "." + strings.Fields(e.ClassName)[0]
	}
	return strings.ToLower(e.TagName)
}
