// Package aggregates implements the race graph write contracts from internal/domain/aggregates.
//
// Each aggregate composes graph.Tx primitives and owns the transaction boundary for its
// public methods. The *InTx variants run inside a caller-owned transaction so the race
// result store can commit a whole report at once.
package aggregates
