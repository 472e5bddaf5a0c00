package common

// Coalesce picks the first argument that is not the zero value of its type. It is how optional settings fall back
// to defaults: a zero sampler field, an unset command-line flag or an empty config string.
//
// Parameters:
//   - values: candidates in priority order, the default last
//
// Returns:
//   - T: the first non-zero candidate, or the zero value when every candidate is zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
