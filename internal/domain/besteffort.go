package domain

// BestEffort is the outcome of a side effect that must never fail the caller,
// such as a cache write-back or a lifecycle event publish. Callers inspect it
// for logging only.
type BestEffort struct {
	Operation string
	Err       error
}

func (b BestEffort) Failed() bool { return b.Err != nil }
