package state

// flowStarts are the entry points of conversations. They are reachable from
// any flow: starting a new conversation silently abandons the previous one,
// which is what eliminates stale mid-flow flags.
var flowStarts = map[Flow]struct{}{
	FlowDepositAmount:  {},
	FlowUsernameChange: {},
	FlowReceiptUpload:  {},
}

// validTransitions lists the permitted mid-flow steps.
var validTransitions = map[Flow][]Flow{
	FlowDepositAmount: {
		FlowDepositMethod,
	},
	FlowDepositMethod: {
		FlowDepositReference,
	},
	FlowDepositReference: {
		FlowReceiptUpload,
	},
}

// IsTransitionAllowed reports whether moving between the two flows is valid.
// Returning to idle is always allowed, as is starting a fresh conversation.
func IsTransitionAllowed(from, to Flow) bool {
	if to == FlowIdle {
		return true
	}
	if _, ok := flowStarts[to]; ok {
		return true
	}

	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}
