package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates every assertion held.
	Pass bool `json:"pass"`

	// Errors contains one message per failed assertion.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Summary is the run's canonical summary JSON.
	Summary []byte `json:"-"`

	// Digest is the summary digest.
	Digest string `json:"digest"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
