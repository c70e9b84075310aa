// Package prometheus exposes engine counters and the token validation
// latency histogram through client_golang.
//
// [Collector] never touches the global registry; callers register it or use
// [Handler] and [WriteTextfile], which build a private registry.
package prometheus
