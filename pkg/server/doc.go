// Package server is the HTTP surface of an ssrpages application.
//
// A Server resolves requested URLs to pages, assembles their page
// contexts and renders them through a render hook. It also serves the
// virtual page code modules a bundler requests and the serialized page
// contexts the client router fetches on navigation.
//
// # Endpoints
//
//	GET /@virtual/<id>              generated page code module (text/javascript)
//	GET /<path>/index.pageContext.json  serialized page context
//	GET /<path>                     rendered page
//	GET /metrics                    Prometheus metrics, when enabled
//	GET <reload path>               dev reload websocket, when mounted
//
// # Usage
//
//	srv, err := server.New(store, modules,
//	    server.WithConfig(cfg),
//	    server.WithRenderHook(render),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(srv.Run())
//
// The server is a plain http.Handler and mounts into an existing chi
// router:
//
//	r.Mount("/", srv.Handler())
package server
