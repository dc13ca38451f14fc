// Package graph provides the directed-graph algorithms the MIR layer needs:
// reverse postorder, dominator trees and strongly connected components.
//
// Graphs are addressed by dense integer node IDs in [0, NumNodes()). The
// package knows nothing about basic blocks; internal/mir adapts its block
// list to the Graph interface and caches the results.
package graph
