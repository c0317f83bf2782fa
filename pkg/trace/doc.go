// Package trace defines the data model shared by the tracefile decoder,
// the replay engine, and the source highlighter: trace steps, graph
// changes, labels and marks, graph snapshots, the host-graph collaborator
// interface, and the standard error values.
package trace
