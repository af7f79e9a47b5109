// Package pageconfig holds the resolved page configuration of an application
// and answers which configuration sources apply to one render environment.
//
// A page is identified by its page id (e.g. "/pages/blog"). Each page owns a
// flat, already-merged set of named configuration sources. A source is either
// an inline value or a reference to a code file, and is tagged with the
// environment it may be loaded in:
//
//	server-only     loaded by the server bundle only
//	client-only     loaded by the client bundle only
//	shared-routing  evaluated at routing time, never emitted as code
//	shared-config   evaluated at config time, never emitted as code
//	universal       loaded on both sides
//
// # Store
//
// A Store holds an immutable Snapshot. Loading a configuration produces a new
// Snapshot that replaces the old one wholesale; readers always observe either
// the old or the new snapshot.
//
//	snap, err := pageconfig.LoadFile("pages.yaml")
//	store := pageconfig.NewStore(snap)
//	entries, err := store.Snapshot().Resolve("/pages/index", pageconfig.SideClient)
package pageconfig
