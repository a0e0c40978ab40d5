// Package engine computes transitive dependency closures over a store.
//
// The closure of an object is the object itself plus everything it
// reaches through references. The engine computes closures for the whole
// universe once, memoizing each result so an object's own references are
// walked at most once per run.
//
// ARCHITECTURE:
//
// Traversal State:
// All mutable state lives in one traversal value owned by the Engine:
//   - pending: the work queue, a bitmap of objects not yet visited
//     (initially the whole universe)
//   - memo: completed closures by interned index
//   - missing: identifiers already reported as unknown
//   - frames/component: the explicit DFS and Tarjan stacks
//
// Explicit Stack:
// The walk never recurses on the call stack. Each frame records the node
// and the position of the next reference to visit, so chains of any
// length cost heap, not goroutine stack.
//
// Cycles:
// Strongly connected components are found with Tarjan's algorithm while
// walking. All members of a component share one closure: the members
// themselves plus the closures of every component they reference. On
// acyclic input every component is a single object and the result is
// the plain memoized DFS closure. On cyclic input the walk still
// terminates, and each member of a cycle reaches every other member, no
// matter where the walk started.
//
// Missing References:
// References outside the universe are handled by one MissingPolicy for
// the whole run: skip (empty contribution, warning) or abort (error
// naming the identifier). Direct lookups of unknown identifiers return
// a Missing outcome rather than an empty Resolved one.
//
// The engine is single-threaded and not safe for concurrent use.
package engine
