package client

// Element is an anchor-like element of a Document.
// Implementations must be comparable; the session keys on them.
type Element interface {
	Attr(name string) (string, bool)
	AddEventListener(event string, fn func(), opts ListenerOptions)
}

// ListenerOptions mirror addEventListener options.
type ListenerOptions struct {
	Passive bool
}

// IntersectionEntry reports a visibility change of an observed element.
type IntersectionEntry struct {
	Target         Element
	IsIntersecting bool
}

// Observer watches elements for visibility changes.
type Observer interface {
	Observe(el Element)
	Disconnect()
}

// Document is the page the controller instruments.
type Document interface {
	// Links returns the document's anchors in document order.
	Links() []Element

	// NewIntersectionObserver creates an observer calling cb on changes.
	NewIntersectionObserver(cb func(entries []IntersectionEntry)) Observer
}
