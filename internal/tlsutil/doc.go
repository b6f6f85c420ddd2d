// Package tlsutil builds the hardened HTTP clients every provider adapter
// dials out with: TLS 1.2+ and AEAD-only cipher suites.
package tlsutil
