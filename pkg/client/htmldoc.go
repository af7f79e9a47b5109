package client

import (
	"io"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HTMLDocument is a headless Document over parsed HTML. Events and
// intersections are driven explicitly with Dispatch and Intersect.
type HTMLDocument struct {
	doc *goquery.Document

	mu        sync.Mutex
	elements  map[*html.Node]*HTMLElement
	observers []*htmlObserver
}

// ParseHTML parses an HTML document.
func ParseHTML(r io.Reader) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &HTMLDocument{doc: doc, elements: make(map[*html.Node]*HTMLElement)}, nil
}

// Links implements Document. Repeated calls return the same elements.
func (d *HTMLDocument) Links() []Element {
	var links []Element
	d.doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		links = append(links, d.element(s))
	})
	return links
}

// Find returns the elements matching a CSS selector.
func (d *HTMLDocument) Find(selector string) []*HTMLElement {
	var out []*HTMLElement
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, d.element(s))
	})
	return out
}

func (d *HTMLDocument) element(s *goquery.Selection) *HTMLElement {
	node := s.Get(0)
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.elements[node]; ok {
		return el
	}
	el := &HTMLElement{sel: s, listeners: make(map[string][]listener)}
	d.elements[node] = el
	return el
}

// NewIntersectionObserver implements Document.
func (d *HTMLDocument) NewIntersectionObserver(cb func([]IntersectionEntry)) Observer {
	o := &htmlObserver{cb: cb, targets: make(map[*HTMLElement]bool)}
	d.mu.Lock()
	d.observers = append(d.observers, o)
	d.mu.Unlock()
	return o
}

// Intersect reports el as scrolled into view to every observer watching it.
func (d *HTMLDocument) Intersect(el *HTMLElement) {
	d.mu.Lock()
	observers := append([]*htmlObserver(nil), d.observers...)
	d.mu.Unlock()
	for _, o := range observers {
		if o.watching(el) {
			o.cb([]IntersectionEntry{{Target: el, IsIntersecting: true}})
		}
	}
}

// Observing returns how many observers currently watch el.
func (d *HTMLDocument) Observing(el *HTMLElement) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, o := range d.observers {
		if o.watching(el) {
			n++
		}
	}
	return n
}

type listener struct {
	fn   func()
	opts ListenerOptions
}

// HTMLElement is an element of an HTMLDocument.
type HTMLElement struct {
	sel *goquery.Selection

	mu        sync.Mutex
	listeners map[string][]listener
}

// Attr implements Element.
func (e *HTMLElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

// AddEventListener implements Element.
func (e *HTMLElement) AddEventListener(event string, fn func(), opts ListenerOptions) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], listener{fn: fn, opts: opts})
}

// Dispatch runs the listeners of event on the calling goroutine.
func (e *HTMLElement) Dispatch(event string) {
	e.mu.Lock()
	ls := append([]listener(nil), e.listeners[event]...)
	e.mu.Unlock()
	for _, l := range ls {
		l.fn()
	}
}

// Listeners returns the number of listeners for event and whether all of
// them are passive.
func (e *HTMLElement) Listeners(event string) (n int, passive bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	passive = true
	for _, l := range e.listeners[event] {
		passive = passive && l.opts.Passive
	}
	return len(e.listeners[event]), passive
}

// Text returns the element's text content.
func (e *HTMLElement) Text() string {
	return e.sel.Text()
}

type htmlObserver struct {
	mu      sync.Mutex
	cb      func([]IntersectionEntry)
	targets map[*HTMLElement]bool
}

func (o *htmlObserver) Observe(el Element) {
	h, ok := el.(*HTMLElement)
	if !ok {
		return
	}
	o.mu.Lock()
	o.targets[h] = true
	o.mu.Unlock()
}

func (o *htmlObserver) Disconnect() {
	o.mu.Lock()
	o.targets = make(map[*HTMLElement]bool)
	o.mu.Unlock()
}

func (o *htmlObserver) watching(el *HTMLElement) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.targets[el]
}
