// Package selectiverepeat implements the selective-repeat ARQ protocol core:
// the sender and receiver state machines providing reliable, exactly-once,
// in-order delivery of fixed-size messages across a channel that may lose,
// corrupt, or delay packets, but never reorders them.
//
// A note about terminology: in this package, the "sender" is entity A (it
// owns the outstanding-packet window and the retransmission timer), and the
// "receiver" is entity B (it owns the reorder buffer and emits
// acknowledgments). The data structures lack mutexes because they are
// intended to be driven by one event at a time: either by the deterministic
// simulator or by a caller that serializes entry points.
package selectiverepeat
