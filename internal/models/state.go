package models

type TransferState string

const (
	StateValidating      TransferState = "VALIDATING"
	StateBalanceChecking TransferState = "BALANCE_CHECKING"
	StateSubmitting      TransferState = "SUBMITTING"
	StateConfirming      TransferState = "CONFIRMING"
	StateSucceeded       TransferState = "SUCCEEDED"
	StateFailed          TransferState = "FAILED"
)

func (s TransferState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

type Outcome string

const (
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeRejected  Outcome = "REJECTED"
	OutcomeTimedOut  Outcome = "TIMED_OUT"
)

// Finality statuses reported by starknet_getTransactionStatus.
const (
	FinalityNotReceived  = "NOT_RECEIVED"
	FinalityReceived     = "RECEIVED"
	FinalityCandidate    = "CANDIDATE"
	FinalityPreConfirmed = "PRE_CONFIRMED"
	FinalityAcceptedOnL2 = "ACCEPTED_ON_L2"
	FinalityAcceptedOnL1 = "ACCEPTED_ON_L1"
	FinalityRejected     = "REJECTED"
)

// Execution statuses.
const (
	ExecutionSucceeded = "SUCCEEDED"
	ExecutionReverted  = "REVERTED"
)

// TxStatus is the status of a transaction as reported by the node.
type TxStatus struct {
	Finality      string `json:"finality_status"`
	Execution     string `json:"execution_status,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// String returns the raw status the network reported: the execution status once the
// transaction has executed, otherwise its finality status.
func (s TxStatus) String() string {
	if s.Execution != "" {
		return s.Execution
	}
	if s.Finality == "" {
		return FinalityNotReceived
	}
	return s.Finality
}

// Succeeded reports a transaction that executed successfully and was accepted into a block.
func (s TxStatus) Succeeded() bool {
	return s.Execution == ExecutionSucceeded && s.accepted()
}

// Failed reports a transaction that will never succeed. Any execution status other
// than SUCCEEDED counts, as does a sequencer rejection.
func (s TxStatus) Failed() bool {
	if s.Finality == FinalityRejected {
		return true
	}
	return s.Execution != "" && s.Execution != ExecutionSucceeded
}

// Stage returns the finality status alone, for reporting a transaction that has
// not reached a terminal state.
func (s TxStatus) Stage() string {
	if s.Finality == "" {
		return FinalityNotReceived
	}
	return s.Finality
}

func (s TxStatus) Terminal() bool {
	return s.Succeeded() || s.Failed()
}

func (s TxStatus) accepted() bool {
	return s.Finality == FinalityAcceptedOnL2 || s.Finality == FinalityAcceptedOnL1
}
