// Package engine implements the flash keyed reconciler.
//
// A Root owns one render tree per mount target. Each Render call runs two
// passes over a fresh work-in-progress tree:
//
// Reconcile:
// The new descriptor tree is diffed against the committed fibers, one node
// at a time in pre-order. Children are matched by key; a match with the same
// kind keeps its visual handle and is flagged EffectUpdate when its props
// changed. Deleted keys are queued on the parent. No visual mutation happens,
// so a rejected tree (duplicate sibling keys) leaves everything untouched.
//
// Commit:
// The same walk applies the queued work through a host.Provider: create
// handles, remove deleted children, push property patches, then move or
// insert handles before the first settled later sibling.
//
// MOVE DETECTION:
// Moves are found by one greedy forward scan. Each matched child is compared
// with lastPlaced, the highest previous order kept in place so far; a child
// whose previous order is lower has fallen behind and is moved. The result is
// a valid placement, not a minimal one: [a b c] -> [c a b] moves a and b.
//
// FAILURE:
// A commit failure leaves the target torn. There is no rollback; the Root
// refuses further renders into that target until Reset. Other targets are
// unaffected.
package engine
