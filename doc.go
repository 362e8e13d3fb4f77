// Package pagestate models a website as a finite set of named states plus
// layered composite dimensions, and navigates between them by computing and
// executing the cheapest sequence of declared transitions.
//
// A Machine is declared once during setup: base states with test predicates,
// composite fragments per layer, costed transitions, occlusions. At runtime
// it classifies the current position by polling predicates, routes with a
// Dijkstra-style search over the transition graph (including a synthetic
// unknown-state vertex backed by default transitions), and traverses the
// path edge by edge against a PageDriver, re-verifying state after each hop
// and retrying on mismatch.
//
// Predicates are plain Go functions or expressions (expr, CEL, or JavaScript
// behind the js_eval build tag) evaluated against the driver's page snapshot.
package pagestate
