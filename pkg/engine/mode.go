package engine

import "github.com/txnlab/ccproc/internal/errs"

// CCMode selects which concurrency-control protocol a Processor runs.
// Values and names are grounded on original_source's CCMode enum
// (txn_processor.h), renumbered as Go iota constants.
type CCMode int

const (
	Serial CCMode = iota
	LockingA
	LockingB
	OCCSerialForward
	OCCSerialBackward
	OCCParallelForward
	OCCParallelBackward
	MVCCTO
	MVCCTwoPL
)

// String implements the original source's ModeToString for logging.
func (m CCMode) String() string {
	switch m {
	case Serial:
		return "SERIAL"
	case LockingA:
		return "LOCKING_A"
	case LockingB:
		return "LOCKING_B"
	case OCCSerialForward:
		return "OCC_SERIAL_FORWARD"
	case OCCSerialBackward:
		return "OCC_SERIAL_BACKWARD"
	case OCCParallelForward:
		return "OCC_PARALLEL_FORWARD"
	case OCCParallelBackward:
		return "OCC_PARALLEL_BACKWARD"
	case MVCCTO:
		return "MVCC_TO"
	case MVCCTwoPL:
		return "MVCC_2PL"
	default:
		return "UNKNOWN"
	}
}

// ParseMode maps a mode's name (as produced by String) back to a CCMode,
// for use by cmd/ccbench's configuration file.
func ParseMode(name string) (CCMode, error) {
	switch name {
	case "SERIAL":
		return Serial, nil
	case "LOCKING_A":
		return LockingA, nil
	case "LOCKING_B":
		return LockingB, nil
	case "OCC_SERIAL_FORWARD":
		return OCCSerialForward, nil
	case "OCC_SERIAL_BACKWARD":
		return OCCSerialBackward, nil
	case "OCC_PARALLEL_FORWARD":
		return OCCParallelForward, nil
	case "OCC_PARALLEL_BACKWARD":
		return OCCParallelBackward, nil
	case "MVCC_TO":
		return MVCCTO, nil
	case "MVCC_2PL":
		return MVCCTwoPL, nil
	default:
		return Serial, errs.NewUnknownModeError("unknown concurrency control mode: " + name)
	}
}

func (m CCMode) valid() bool {
	return m >= Serial && m <= MVCCTwoPL
}
