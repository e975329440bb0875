// Package api provides the HTTP surface of the watering engine.
//
// The engine exposes a small machine-to-machine API: two trigger routes
// invoked by an external periodic scheduler, plus health, session history
// and metrics endpoints for monitoring.
//
// The trigger routes are authenticated by a shared-secret bearer token
// compared in constant time. An empty configured secret disables the check
// entirely; that is explicitly insecure and only acceptable for local
// development, so the server logs a warning at startup.
//
// The server follows the same lifecycle pattern as the infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
