// Package transform runs passes over MIR bodies.
//
// A pass is anything implementing MirPass. The Runner applies an ordered
// list of passes to a body, honours per-pass gating and session overrides,
// counts the passes that ran and finally moves the body to its next phase.
//
// Phase changes only move forward:
//
//	built -> analysis-initial -> analysis-post-cleanup
//	      -> runtime-initial -> runtime-post-cleanup -> runtime-optimized
//
// Asking for a phase at or behind the body's current phase panics. After
// a phase change PassCount starts again from zero.
//
// Bodies are independent, so RunBodies processes them in parallel with a
// bounded number of workers. The TyCtxt and Session are shared read-only;
// passes report problems into the TyCtxt's diag.Bag.
package transform
