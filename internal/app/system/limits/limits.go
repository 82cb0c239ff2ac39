// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxScheduleRequestSize caps POST /folders bodies. A full 52-week schedule
	// with seven templates is well under 4 KB.
	MaxScheduleRequestSize = 64 << 10

	// MaxStatusRequestSize caps session status updates.
	MaxStatusRequestSize = 4 << 10
)
