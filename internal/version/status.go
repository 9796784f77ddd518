// internal/version/status.go
package version

// Status classifies an observed update against the stored metadata.
type Status uint8

const (
	StatusUnknown     Status = iota // engine not ready or bad handle
	StatusNew                       // first observation of the value
	StatusSame                      // same version, same content
	StatusUpdated                   // newer than the stored version
	StatusOld                       // older than the stored version
	StatusConflicting               // same version, different content
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusSame:
		return "same"
	case StatusUpdated:
		return "updated"
	case StatusOld:
		return "old"
	case StatusConflicting:
		return "conflicting"
	default:
		return "unknown"
	}
}
