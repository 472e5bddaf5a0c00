package overlay

import "time"

// SubmitterBuilderOption is a functional option applied to a submitter by NewSubmitter.
type SubmitterBuilderOption func(*submitter)

// WithSubmitRetries sets how many times a failed texture submission is retried within one Submit.
// Zero, the default, fails on the first error.
//
// Parameters:
//   - retries: the retry count, negative values are treated as zero
//
// Returns:
//   - SubmitterBuilderOption: option function to apply
func WithSubmitRetries(retries int) SubmitterBuilderOption {
	return func(s *submitter) {
		s.retries = retries
	}
}

// WithRetryBackoff sets the pause between submission retries. Defaults to 10ms.
//
// Parameters:
//   - d: the pause
//
// Returns:
//   - SubmitterBuilderOption: option function to apply
func WithRetryBackoff(d time.Duration) SubmitterBuilderOption {
	return func(s *submitter) {
		s.backoff = d
	}
}

// WithAnchorOffset places the overlay at an offset from the anchor device, in the device's space.
//
// Parameters:
//   - offset: x, y, z in meters
//
// Returns:
//   - SubmitterBuilderOption: option function to apply
func WithAnchorOffset(offset [3]float32) SubmitterBuilderOption {
	return func(s *submitter) {
		s.anchorOffset = offset
	}
}

// withSleep replaces time.Sleep between retries, used by tests.
func withSleep(sleep func(time.Duration)) SubmitterBuilderOption {
	return func(s *submitter) {
		s.sleep = sleep
	}
}
