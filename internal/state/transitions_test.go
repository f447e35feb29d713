package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     Flow
		to       Flow
		expected bool
	}{
		{name: "idle to deposit amount", from: FlowIdle, to: FlowDepositAmount, expected: true},
		{name: "deposit amount to deposit method", from: FlowDepositAmount, to: FlowDepositMethod, expected: true},
		{name: "deposit method to deposit reference", from: FlowDepositMethod, to: FlowDepositReference, expected: true},
		{name: "deposit reference to receipt upload", from: FlowDepositReference, to: FlowReceiptUpload, expected: true},
		{name: "any flow back to idle", from: FlowDepositReference, to: FlowIdle, expected: true},
		{name: "new deposit replaces username change", from: FlowUsernameChange, to: FlowDepositAmount, expected: true},
		{name: "new username change replaces deposit", from: FlowDepositReference, to: FlowUsernameChange, expected: true},
		{name: "receipt upload starts from anywhere", from: FlowIdle, to: FlowReceiptUpload, expected: true},
		{name: "skipping method step invalid", from: FlowDepositAmount, to: FlowDepositReference, expected: false},
		{name: "idle to deposit method invalid", from: FlowIdle, to: FlowDepositMethod, expected: false},
		{name: "idle to deposit reference invalid", from: FlowIdle, to: FlowDepositReference, expected: false},
		{name: "unknown flow to mid step invalid", from: Flow("unknown"), to: FlowDepositMethod, expected: false},
		{name: "unknown flow to idle allowed", from: Flow("unknown"), to: FlowIdle, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}
