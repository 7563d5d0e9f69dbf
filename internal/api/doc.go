// Package api provides the wire types of the hostdiff REST API and an HTTP
// client for it.
//
// # Overview
//
// The server in internal/server encodes the types declared in types.go; the
// Client in client.go decodes them. The Backend interface groups the calls
// the TUI and the compare orchestrator need, so tests can swap in fakes.
//
// # Client Usage
//
//	client, err := api.NewClient("127.0.0.1:7490")
//	if err != nil {
//		return err
//	}
//	hosts, err := client.ListHosts(ctx)
//	res, err := client.FetchDiff(ctx, "203.0.113.10", tsA, tsB)
//
// An apiBind without a scheme is treated as http://host:port; any path,
// query or fragment is dropped. Requests time out after requestTimeout.
//
// # Errors
//
// Responses with status >= 400 become *APIError carrying the status and the
// server's {"detail", "code"} body when one could be decoded. The compare
// package reads the code through ErrorCode to recognize malformed snapshots.
// Decode failures are wrapped as "decode response: ...".
package api
