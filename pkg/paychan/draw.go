package paychan

import "math/bits"

// Draw derives the value compared against the threshold. The payer chooses
// seed, so the outcome is only as fair as the payer is honest.
func Draw(now, seed, intent uint64) uint16 {
	return uint16(satAdd(satAdd(now, seed), intent) % Basis)
}

// Executes reports whether a draw pays out. A value equal to the threshold
// does not.
func Executes(value, threshold uint16) bool {
	return value < threshold
}

func satAdd(a, b uint64) uint64 {
	s, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return ^uint64(0)
	}
	return s
}

func satSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
