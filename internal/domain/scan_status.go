package domain

import "fmt"

// Virus scan status labels
const (
	scanPending  = "PENDING"
	scanClean    = "CLEAN"
	scanInfected = "INFECTED"
)

// virusScanTransitions maps each scan status to the statuses reachable
// from it. CLEAN and INFECTED are both terminal.
var virusScanTransitions = map[string][]string{
	scanPending:  {scanClean, scanInfected},
	scanClean:    {},
	scanInfected: {},
}

// VirusScanStatus is the scan lifecycle state of an uploaded file.
// Only CLEAN counts as safe; an INFECTED scan is complete but the file
// must never be treated as safe.
type VirusScanStatus struct {
	value string
}

// NewVirusScanStatus creates a scan status from its string label
func NewVirusScanStatus(value string) (VirusScanStatus, error) {
	if _, ok := virusScanTransitions[value]; !ok {
		return VirusScanStatus{}, NewValidationError("virus_scan_status",
			fmt.Sprintf("unknown virus scan status %q", value))
	}
	return VirusScanStatus{value: value}, nil
}

// ScanPending returns the PENDING status
func ScanPending() VirusScanStatus { return VirusScanStatus{value: scanPending} }

// ScanClean returns the CLEAN status
func ScanClean() VirusScanStatus { return VirusScanStatus{value: scanClean} }

// ScanInfected returns the INFECTED status
func ScanInfected() VirusScanStatus { return VirusScanStatus{value: scanInfected} }

// String returns the status label
func (s VirusScanStatus) String() string { return s.value }

// IsPending reports whether the scan has not completed yet
func (s VirusScanStatus) IsPending() bool { return s.value == scanPending }

// IsSafe reports whether the file may be served. True for CLEAN only.
func (s VirusScanStatus) IsSafe() bool { return s.value == scanClean }

// IsInfected reports whether the scan found the file infected
func (s VirusScanStatus) IsInfected() bool { return s.value == scanInfected }

// IsComplete reports whether the scan reached a terminal state
func (s VirusScanStatus) IsComplete() bool {
	return len(virusScanTransitions[s.value]) == 0
}

// CanTransitionTo reports whether the transition table allows moving to next
func (s VirusScanStatus) CanTransitionTo(next VirusScanStatus) bool {
	for _, allowed := range virusScanTransitions[s.value] {
		if allowed == next.value {
			return true
		}
	}
	return false
}

// TransitionTo returns the next status, or an InvalidStateTransitionError
// when the transition table does not allow the move.
func (s VirusScanStatus) TransitionTo(next VirusScanStatus) (VirusScanStatus, error) {
	if !s.CanTransitionTo(next) {
		return VirusScanStatus{}, NewInvalidStateTransitionError(s.value, next.value)
	}
	return next, nil
}

// Equals reports structural equality
func (s VirusScanStatus) Equals(other VirusScanStatus) bool { return s.value == other.value }
