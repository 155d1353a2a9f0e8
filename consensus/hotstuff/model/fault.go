package model

// FaultType enumerates the injectable replica misbehaviors (spec.md §4.7.4).
// Real Byzantine equivocation beyond these enumerated types is out of
// scope (spec.md §1).
type FaultType uint8

const (
	NoFault FaultType = iota
	CrashFault
	SilentFault
	RandomDropFault
	ByzantineEquivocateFault
)

func (f FaultType) String() string {
	switch f {
	case NoFault:
		return "NONE"
	case CrashFault:
		return "CRASH"
	case SilentFault:
		return "SILENT"
	case RandomDropFault:
		return "RANDOM_DROP"
	case ByzantineEquivocateFault:
		return "BYZANTINE_EQUIVOCATE"
	default:
		return "UNKNOWN"
	}
}

// ParseFaultType maps a configuration string (spec.md §6.3) to a
// FaultType, returning a ConfigurationError for unknown values.
func ParseFaultType(s string) (FaultType, error) {
	switch s {
	case "", "NONE":
		return NoFault, nil
	case "CRASH":
		return CrashFault, nil
	case "SILENT":
		return SilentFault, nil
	case "RANDOM_DROP":
		return RandomDropFault, nil
	case "BYZANTINE_EQUIVOCATE":
		return ByzantineEquivocateFault, nil
	default:
		return NoFault, ConfigurationError{Msg: "unknown fault_type: " + s}
	}
}
