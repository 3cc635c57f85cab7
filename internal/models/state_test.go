package models

import "testing"

func TestTxStatus_Classification(t *testing.T) {
	tests := []struct {
		name      string
		status    TxStatus
		str       string
		succeeded bool
		failed    bool
	}{
		{"empty", TxStatus{}, FinalityNotReceived, false, false},
		{"received", TxStatus{Finality: FinalityReceived}, FinalityReceived, false, false},
		{"pre confirmed success", TxStatus{Finality: FinalityPreConfirmed, Execution: ExecutionSucceeded}, ExecutionSucceeded, false, false},
		{"accepted on l2", TxStatus{Finality: FinalityAcceptedOnL2, Execution: ExecutionSucceeded}, ExecutionSucceeded, true, false},
		{"accepted on l1", TxStatus{Finality: FinalityAcceptedOnL1, Execution: ExecutionSucceeded}, ExecutionSucceeded, true, false},
		{"reverted", TxStatus{Finality: FinalityAcceptedOnL2, Execution: ExecutionReverted}, ExecutionReverted, false, true},
		{"rejected", TxStatus{Finality: FinalityRejected}, FinalityRejected, false, true},
		{"rejected execution", TxStatus{Finality: FinalityAcceptedOnL2, Execution: "REJECTED"}, "REJECTED", false, true},
		{"unknown execution", TxStatus{Execution: "FAILED"}, "FAILED", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.String(); got != tt.str {
				t.Fatalf("String() = %s, want %s", got, tt.str)
			}
			if got := tt.status.Succeeded(); got != tt.succeeded {
				t.Fatalf("Succeeded() = %v, want %v", got, tt.succeeded)
			}
			if got := tt.status.Failed(); got != tt.failed {
				t.Fatalf("Failed() = %v, want %v", got, tt.failed)
			}
			if got := tt.status.Terminal(); got != (tt.succeeded || tt.failed) {
				t.Fatalf("Terminal() = %v", got)
			}
		})
	}
}

func TestTxStatus_Stage(t *testing.T) {
	tests := []struct {
		status TxStatus
		want   string
	}{
		{TxStatus{}, FinalityNotReceived},
		{TxStatus{Finality: FinalityReceived}, FinalityReceived},
		{TxStatus{Finality: FinalityPreConfirmed, Execution: ExecutionSucceeded}, FinalityPreConfirmed},
	}
	for _, tt := range tests {
		if got := tt.status.Stage(); got != tt.want {
			t.Fatalf("Stage(%+v) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestTransferState_Terminal(t *testing.T) {
	for _, s := range []TransferState{StateValidating, StateBalanceChecking, StateSubmitting, StateConfirming} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	if !StateSucceeded.Terminal() || !StateFailed.Terminal() {
		t.Fatal("succeeded and failed must be terminal")
	}
}

func TestTransferRequest_EffectiveAmount(t *testing.T) {
	if got := (TransferRequest{}).EffectiveAmount(); got != 1 {
		t.Fatalf("EffectiveAmount() = %d, want 1", got)
	}
	if got := (TransferRequest{Amount: 5}).EffectiveAmount(); got != 5 {
		t.Fatalf("EffectiveAmount() = %d, want 5", got)
	}
}
