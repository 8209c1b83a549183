// Package main hosts the spines CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, wires the catalog,
// queues and extraction engine into a stack, and hands each subcommand the
// pieces it needs. Commands that write to the data directory take the
// single-writer lock first.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// surfaced here through flags and table output.
package main
