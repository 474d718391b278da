package app

// ScanRun tracks a CLI operation that is journaled in the local database.
// Runs are created in memory with ID=0 and only journaled once work starts
// (giving them an auto-increment ID from the database).
type ScanRun struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
}

// NewScanRun creates a new in-memory scan run.
func NewScanRun(operation, parameters string) *ScanRun {
	return &ScanRun{
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this run has been journaled in the database.
func (r *ScanRun) Persisted() bool {
	return r.ID != 0
}
