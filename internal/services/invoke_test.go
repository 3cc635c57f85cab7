package services

import (
	"math/big"
	"testing"

	felthelpers "nftrelay/service/internal/utils/felt"
)

func testInvoke() invokeV3 {
	return invokeV3{
		Version:  txVersion3,
		Sender:   big.NewInt(0x1234),
		Calldata: executeCalldata(big.NewInt(0x99), felthelpers.Selector("safe_transfer_from"), []*big.Int{big.NewInt(1)}),
		Nonce:    big.NewInt(7),
		ChainID:  felthelpers.MustShortString("SN_SEPOLIA"),
		Bounds: resourceBounds{
			L1Gas:     resourceBound{MaxAmount: big.NewInt(0), MaxPrice: big.NewInt(10)},
			L2Gas:     resourceBound{MaxAmount: big.NewInt(1000), MaxPrice: big.NewInt(20)},
			L1DataGas: resourceBound{MaxAmount: big.NewInt(50), MaxPrice: big.NewInt(30)},
		},
	}
}

func TestEncodeBound(t *testing.T) {
	got, err := encodeBound(resourceL2Gas, resourceBound{MaxAmount: big.NewInt(2), MaxPrice: big.NewInt(3)})
	if err != nil {
		t.Fatalf("encodeBound: %v", err)
	}
	want := new(big.Int).Lsh(felthelpers.MustShortString("L2_GAS"), 192)
	want.Or(want, new(big.Int).Lsh(big.NewInt(2), 128))
	want.Or(want, big.NewInt(3))
	if got.Cmp(want) != 0 {
		t.Fatalf("encodeBound = %x, want %x", got, want)
	}
}

func TestEncodeBound_Overflow(t *testing.T) {
	tooMuch := new(big.Int).Add(maxUint64, big.NewInt(1))
	if _, err := encodeBound(resourceL1Gas, resourceBound{MaxAmount: tooMuch, MaxPrice: big.NewInt(1)}); err == nil {
		t.Fatal("expected error for amount above u64")
	}
	tooPricey := new(big.Int).Add(maxUint128, big.NewInt(1))
	if _, err := encodeBound(resourceL1Gas, resourceBound{MaxAmount: big.NewInt(1), MaxPrice: tooPricey}); err == nil {
		t.Fatal("expected error for price above u128")
	}
	if _, err := encodeBound(resourceL1Gas, resourceBound{}); err == nil {
		t.Fatal("expected error for missing values")
	}
}

func TestExecuteCalldata(t *testing.T) {
	to, sel := big.NewInt(5), big.NewInt(6)
	got := executeCalldata(to, sel, []*big.Int{big.NewInt(7), big.NewInt(8)})
	want := []int64{1, 5, 6, 2, 7, 8}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Int64() != w {
			t.Fatalf("calldata[%d] = %s, want %d", i, got[i], w)
		}
	}
}

func TestInvokeHash_DeterministicAndFieldSensitive(t *testing.T) {
	base := testInvoke()
	h1, err := base.hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, _ := testInvoke().hash()
	if h1.Cmp(h2) != 0 {
		t.Fatal("hash is not deterministic")
	}
	if h1.Cmp(felthelpers.Prime) >= 0 || h1.Sign() <= 0 {
		t.Fatalf("hash %x is not a field element", h1)
	}

	mutations := map[string]func(tx *invokeV3){
		"nonce":    func(tx *invokeV3) { tx.Nonce = big.NewInt(8) },
		"chain":    func(tx *invokeV3) { tx.ChainID = felthelpers.MustShortString("SN_MAIN") },
		"version":  func(tx *invokeV3) { tx.Version = txVersion3Query },
		"calldata": func(tx *invokeV3) { tx.Calldata = tx.Calldata[:len(tx.Calldata)-1] },
		"bounds":   func(tx *invokeV3) { tx.Bounds.L2Gas.MaxAmount = big.NewInt(1001) },
		"tip":      func(tx *invokeV3) { tx.Tip = big.NewInt(1) },
	}
	for name, mutate := range mutations {
		tx := testInvoke()
		mutate(&tx)
		h, err := tx.hash()
		if err != nil {
			t.Fatalf("%s: hash: %v", name, err)
		}
		if h.Cmp(h1) == 0 {
			t.Fatalf("%s: hash did not change", name)
		}
	}
}

func TestInvokeRPC(t *testing.T) {
	tx := testInvoke().rpc([]*big.Int{big.NewInt(1), big.NewInt(2)})
	if tx.Version != "0x3" || tx.Nonce != "0x7" || tx.Tip != "0x0" {
		t.Fatalf("version=%s nonce=%s tip=%s", tx.Version, tx.Nonce, tx.Tip)
	}
	if tx.PaymasterData == nil || tx.AccountDeploymentData == nil {
		t.Fatal("empty arrays must encode as [] not null")
	}
	if tx.ResourceBounds.L2Gas.MaxAmount != "0x3e8" || tx.ResourceBounds.L1DataGas.MaxPricePerUnit != "0x1e" {
		t.Fatalf("bounds = %+v", tx.ResourceBounds)
	}
	if len(tx.Signature) != 2 || tx.Signature[1] != "0x2" {
		t.Fatalf("signature = %v", tx.Signature)
	}
}

func TestTxVersion3Query(t *testing.T) {
	if got := felthelpers.Hex(txVersion3Query); got != "0x100000000000000000000000000000003" {
		t.Fatalf("query version = %s", got)
	}
}
