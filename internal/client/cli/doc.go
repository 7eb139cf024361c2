// Package cli implements the interactive LoanKeeper client shell: a small
// REPL over the cache-backed data services, the sync engine and the
// connectivity monitor.
package cli
