// Package mir defines the Mid-level Intermediate Representation: the typed
// control-flow graph a compiler middle-end uses for flow analysis,
// optimization and constant evaluation.
//
// A function is a Body: a graph of basic blocks (BasicBlocks), a table of
// locals, a tree of source scopes and debug metadata. Bodies are built by an
// external lowering stage, threaded through a pass pipeline (see
// internal/transform) and queried by analyses through Location and the
// cached predecessor/dominator information on BasicBlocks.
//
// # Invariants
//
//   - Local 0 is the return place and is always mutable.
//   - Locals 1..=ArgCount are the arguments; ArgCount < len(LocalDecls).
//   - Block 0 is the entry block.
//   - A block's terminator is nil only while the block is being built.
//   - Cleanup blocks only transfer control to other cleanup blocks.
//   - Cached graph facts on BasicBlocks are either absent or consistent
//     with the current block list. Every mutable access goes through
//     BasicBlocks.AsMut, which drops them.
//   - Indices are stable within a pass: statements are replaced with Nop
//     rather than removed.
//
// Contract violations (malformed construction, reading a terminator that
// was never set, unknown phase names) panic: they are bugs in an upstream
// stage, not user errors.
package mir
