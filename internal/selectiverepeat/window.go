package selectiverepeat

//
// Modular sequence number arithmetic shared by the sender and the receiver.
// Window-boundary checks recur at every entry point, so the wraparound logic
// lives here and nowhere else.
//

// inWindow returns true when seq falls within the circular interval
// [lo, hi] modulo space. All arguments must already be reduced to
// [0, space).
func inWindow(seq, lo, hi int32) bool {
	if lo <= hi {
		return seq >= lo && seq <= hi
	}
	return seq >= lo || seq <= hi
}

// seqAdd returns seq advanced by n modulo space.
func seqAdd(seq, n, space int32) int32 {
	return (seq + n) % space
}

// seqBefore returns the sequence number immediately preceding seq
// modulo space.
func seqBefore(seq, space int32) int32 {
	return (seq - 1 + space) % space
}
