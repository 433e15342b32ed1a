// Package server hosts the optional Fiber HTTP service. It exposes the same
// cache-or-download decision as the CLI (GET /fetch?dataset=<id>) and serves
// rows straight from the local cache (GET /datasets/:key/:split/rows). Every
// request gets an X-Request-ID; diagnostics live under /-/. Dependencies are
// passed in explicitly through AppOptions so tests can inject fakes.
package server
