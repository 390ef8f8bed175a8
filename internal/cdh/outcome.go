package cdh

// Outcome is the terminal result of one listen pass. The pass decides
// what (if anything) went back over the radio from the kind alone:
// dropped messages are never answered, diagnostics are, dispatched
// commands were acknowledged and routed.
type Outcome struct {
	Kind       OutcomeKind
	Reason     DropReason
	Diagnostic string
	Command    string
}

type OutcomeKind int

const (
	// OutcomeNone: nothing arrived before the timeout.
	OutcomeNone OutcomeKind = iota
	// OutcomeDropped: the message failed authentication or addressing
	// and was silently discarded.
	OutcomeDropped
	// OutcomeDiagnostic: a best-effort diagnostic frame went back.
	OutcomeDiagnostic
	// OutcomeDispatched: the command was acknowledged and routed.
	OutcomeDispatched
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNone:
		return "none"
	case OutcomeDropped:
		return "dropped"
	case OutcomeDiagnostic:
		return "diagnostic"
	case OutcomeDispatched:
		return "dispatched"
	default:
		return "unknown"
	}
}

// DropReason is logged locally and counted; it is never transmitted,
// so a sender probing the link learns nothing from a drop.
type DropReason string

const (
	DropMissingAuth  DropReason = "missing_auth"
	DropBadCounter   DropReason = "bad_counter"
	DropBadHMAC      DropReason = "bad_hmac"
	DropReplay       DropReason = "replay"
	DropNameMismatch DropReason = "name_mismatch"
)

func none() Outcome { return Outcome{Kind: OutcomeNone} }

func dropped(reason DropReason) Outcome {
	return Outcome{Kind: OutcomeDropped, Reason: reason}
}

func diagnostic(text string) Outcome {
	return Outcome{Kind: OutcomeDiagnostic, Diagnostic: text}
}

func dispatched(command string) Outcome {
	return Outcome{Kind: OutcomeDispatched, Command: command}
}
