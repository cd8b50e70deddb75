// Package relationship provides typed graph edges between nodes, BFS
// graph mapping, and relationship-type validation. This supplements
// the Hierarchy Index's parent/child/sibling model (spec.md §4.3) with
// a separate, explicitly-typed edge graph the way the teacher's
// internal/relationships package layered relationship edges over its
// memories table. Not named in spec.md's Facade operations; added per
// SPEC_FULL.md §4 as a dropped-feature supplement grounded in the
// teacher's relationships test suite.
package relationship
