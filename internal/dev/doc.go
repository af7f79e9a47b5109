// Package dev provides development-mode page configuration reloading.
//
// This package implements:
//   - File watching of the page configuration and route scripts (fsnotify)
//   - Wholesale snapshot rebuilds on change
//   - WebSocket-based browser refresh
//   - Error overlay in browser
//
// A rebuild never patches the current snapshot. The configuration is
// loaded from scratch and swapped in atomically; when loading fails the
// previous snapshot stays in place and browsers show the error.
//
// # Usage
//
//	srv := dev.NewServer(dev.ServerOptions{
//	    Config:  cfg,
//	    Store:   store,
//	    Rebuild: func() (*pageconfig.Snapshot, error) { return pageconfig.LoadFile(cfg.PagesPath()) },
//	})
//	r.Get(cfg.Dev.ReloadPath, srv.Reload().HandleWebSocket)
//
//	go srv.Start(ctx)
//
// # Hot Reload Protocol
//
// The browser connects to the reload path via WebSocket.
// Messages are JSON-encoded:
//
//	{"type": "reload", "version": 3}  // Configuration swapped, reload
//	{"type": "error", "error": "..."} // Shows error overlay
//	{"type": "clear"}                 // Clears error overlay
package dev
