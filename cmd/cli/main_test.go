package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"transfer", "balance", "uri", "status", "import-key"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("subcommand %s missing: %v", name, err)
		}
	}
}

func TestTransferCmd_RejectsZeroAmount(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"transfer", "--to", "0x1", "--token-id", "1", "--amount", "0"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "--amount must be positive") {
		t.Fatalf("err = %v", err)
	}
}

func TestStatusCmd_RequiresHash(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"status"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected missing flag error")
	}
}
