// Package client implements in-app navigation and link prefetching.
//
// A Session holds the state that lives for one full page load: the set of
// prefetched URLs, the links already instrumented, and whether client-side
// routing has been disabled. A full reload starts a new Session.
//
// The Router moves through Idle, Matching, Loading and Rendering for each
// navigation. A newer navigation supersedes an older one; the older one's
// results are dropped and it returns ErrNavigationSuperseded. When loading
// fails because the deployment's assets changed, client routing is
// disabled for the rest of the session and the URL is reloaded in full.
//
// The PrefetchController instruments a Document's links so that hovering
// or scrolling a link into view loads the target page ahead of time.
// Router and PrefetchController share a Loader, so a navigation reuses a
// prefetch that is in flight or done.
package client
