// Package pagecontext builds the per-request record handed to the render
// hook.
//
// Every PageContext is produced by an Assembler, which checks its
// invariants: URL fields agree with each other, routeParams is never nil,
// a page id always comes with a Page, exports are plain maps, and is404
// is decided. Render hooks refuse contexts that did not pass through it.
//
// Serialize writes the subset of a context sent to the browser, with keys
// in sorted order. ParseSerialized reads it back on the client.
package pagecontext
