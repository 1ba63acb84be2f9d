package pgexec

import "github.com/youssefsiam38/pgexec/driver"

// isoLevel maps the requested isolation level onto the driver level.
// The table is fixed:
//
//	None            -> Unspecified (no transaction)
//	RepeatableRead  -> RepeatableRead
//	ReadUncommitted -> ReadUncommitted
//	ReadCommitted   -> ReadCommitted
//	Snapshot        -> Snapshot, or Serializable when the driver lacks it
//	Default         -> Serializable
//	Serializable    -> Serializable
//	anything else   -> Serializable
func isoLevel(level IsolationLevel, supportsSnapshot bool) driver.IsoLevel {
	switch level {
	case IsolationNone:
		return driver.IsoLevelUnspecified
	case IsolationRepeatableRead:
		return driver.IsoLevelRepeatableRead
	case IsolationReadUncommitted:
		return driver.IsoLevelReadUncommitted
	case IsolationReadCommitted:
		return driver.IsoLevelReadCommitted
	case IsolationSnapshot:
		if supportsSnapshot {
			return driver.IsoLevelSnapshot
		}
		return driver.IsoLevelSerializable
	default:
		return driver.IsoLevelSerializable
	}
}
