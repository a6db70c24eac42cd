package reconcile

import "fmt"

// Phase names the step of a reconciliation that failed.
type Phase string

const (
	// PhaseListing means the remote listing could not be fetched; nothing
	// was transferred.
	PhaseListing Phase = "listing"

	// PhaseTransfer means an upload or download failed; earlier transfers in the same
	// call went through.
	PhaseTransfer Phase = "transfer"
)

// ReconciliationError wraps the provider error that stopped a
// reconciliation.
type ReconciliationError struct {
	Phase Phase

	// Name is the file being transferred, empty for PhaseListing.
	Name string

	Err error
}

func (e *ReconciliationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("reconcile: %s of %q failed: %v", e.Phase, e.Name, e.Err)
	}
	return fmt.Sprintf("reconcile: %s failed: %v", e.Phase, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
