package redisfirstapp

// firstSet returns the first of vs that is not T's zero value, or the zero
// value when all are unset. Option defaults chain through it:
// firstSet(opts.Logger, acc.log, NopLogger{}).
func firstSet[T comparable](vs ...T) T {
	var zero T
	for _, v := range vs {
		if v != zero {
			return v
		}
	}
	return zero
}
