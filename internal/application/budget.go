package application

// RetryBudget counts poll attempts for a single logical query. A budget is
// created per call and must not be shared between queries.
type RetryBudget struct {
	attempts    int
	maxAttempts int
}

func NewRetryBudget(maxAttempts int) *RetryBudget {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &RetryBudget{maxAttempts: maxAttempts}
}

// Record counts one attempt and reports whether another one is allowed.
func (b *RetryBudget) Record() bool {
	b.attempts++
	return b.attempts < b.maxAttempts
}

func (b *RetryBudget) Attempts() int {
	return b.attempts
}

func (b *RetryBudget) MaxAttempts() int {
	return b.maxAttempts
}
