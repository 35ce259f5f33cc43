// Package aggregates defines domain-facing aggregate contracts for the race result graph.
//
// These contracts avoid persistence/transport details and represent semantic write
// boundaries where invariants must be enforced atomically.
package aggregates
