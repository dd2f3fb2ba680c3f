package calculator

// ApplyCreditDelta returns balance + delta, floored at zero.
func ApplyCreditDelta(balance, delta int64) int64 {
	next := balance + delta
	if next < 0 {
		return 0
	}
	return next
}
