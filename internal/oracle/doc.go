// Package oracle connects the engine to its external decision service.
//
// The service is an MCP server exposing a single prompt-in, text-out
// tool. Client owns the transport (streamable-http, SSE, or stdio) and
// the protocol handshake; Decider renders prompts for each decision
// kind, parses the replies into the typed decision structs from
// internal/api, and re-prompts within a bounded number of attempts when
// a reply cannot be used.
//
// Nothing in this package trusts the service: every decision is
// validated against its closed verdict set before it reaches the engine,
// and persistent malformation surfaces as a step failure rather than a
// crash.
package oracle
