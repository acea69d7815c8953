package editapi

// ResultCode is the outcome of dispatching one command to the segment
// store. The broadcast line stringifies it; this is the only place the
// distinction between kinds ever escapes the engine.
type ResultCode int

const (
	ResultSuccess ResultCode = iota
	ResultInvalidPosition
	ResultDeletedPosition
	ResultOutdatedVersion
)

// String renders the result the way it appears in a broadcast EDIT line.
func (r ResultCode) String() string {
	switch r {
	case ResultSuccess:
		return "SUCCESS"
	case ResultInvalidPosition:
		return "Reject INVALID_POSITION"
	case ResultDeletedPosition:
		return "Reject DELETED_POSITION"
	case ResultOutdatedVersion:
		return "Reject OUTDATED_VERSION"
	default:
		return "Reject UNKNOWN"
	}
}
