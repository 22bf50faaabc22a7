package paychan

const (
	// Basis is the denominator of probability thresholds: 10000 basis
	// points make certainty.
	Basis = 10000
	// DefaultThreshold is the threshold every channel starts with.
	DefaultThreshold = 100
)

// Threshold returns the recommended probability threshold for an
// accumulated intent. Larger amounts resolve sooner. Channels are opened
// with DefaultThreshold and the controller never applies this policy on
// its own.
func Threshold(accumulated uint64) uint16 {
	switch {
	case accumulated < 10_000:
		return DefaultThreshold
	case accumulated < 100_000:
		return DefaultThreshold * 2
	case accumulated < 1_000_000:
		return DefaultThreshold * 5
	default:
		return DefaultThreshold * 10
	}
}
