package ledger

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"cardgame/go-client/internal/rpckit"
)

func TestNameToUint64(t *testing.T) {
	cases := map[string]uint64{
		"eosio":    6138663577826885632,
		"cardgame": 0x41ae961a4a000000,
		"player1":  12415831931566948352,
		"":         0,
	}
	for name, want := range cases {
		got, err := NameToUint64(name)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if got != want {
			t.Fatalf("%q: got %d want %d", name, got, want)
		}
	}
	for _, bad := range []string{"Player1", "player6", "under_score", "abcdefghijklmn", "aaaaaaaaaaaaz"} {
		if _, err := NameToUint64(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestVaruint32(t *testing.T) {
	cases := map[uint32]string{0: "00", 127: "7f", 128: "8001", 300: "ac02"}
	for v, want := range cases {
		var e encoder
		e.varuint32(v)
		if got := hex.EncodeToString(e.bytes()); got != want {
			t.Fatalf("%d: got %s want %s", v, got, want)
		}
	}
}

func TestTransactionPack(t *testing.T) {
	tx := Transaction{
		Expiration:     time.Date(2026, 10, 17, 12, 0, 30, 0, time.UTC),
		RefBlockNum:    70533 & 0xffff,
		RefBlockPrefix: 123456789,
		Actions: []PackedAction{{
			Account:       "cardgame",
			Name:          "login",
			Authorization: []PermissionLevel{{Actor: "player1", Permission: PermissionActive}},
			Data:          mustHex(t, "000000205ce54dac"),
		}},
	}
	packed, err := tx.Pack()
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	if got := hex.EncodeToString(packed); got != loginPackedTrx {
		t.Fatalf("got %s\nwant %s", got, loginPackedTrx)
	}

	tx.Actions[0].Authorization[0].Actor = "Player1"
	if _, err := tx.Pack(); err == nil {
		t.Fatal("expected an invalid actor name to fail")
	}
}

func TestSigningDigestNeedsChainID(t *testing.T) {
	if _, err := SigningDigest("abcd", nil); err == nil {
		t.Fatal("expected a short chain id to fail")
	}
	digest, err := SigningDigest(testChainID, mustHex(t, loginPackedTrx))
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	if hex.EncodeToString(digest) != loginDigest {
		t.Fatalf("unexpected digest %x", digest)
	}
}

func TestPackActionPlaycard(t *testing.T) {
	data, err := cardgameABI.PackAction("playcard", map[string]any{"username": "player1", "player_card_idx": 2})
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	if got := hex.EncodeToString(data); got != "000000205ce54dac02" {
		t.Fatalf("unexpected data %s", got)
	}
	// JSON decoding hands numbers over as float64.
	data, err = cardgameABI.PackAction("playcard", map[string]any{"username": "player1", "player_card_idx": float64(2)})
	if err != nil || hex.EncodeToString(data) != "000000205ce54dac02" {
		t.Fatalf("float index: %x %v", data, err)
	}
}

func TestPackActionRejectsBadData(t *testing.T) {
	cases := []struct {
		name   string
		action string
		data   map[string]any
		want   string
	}{
		{"undeclared action", "startgame", map[string]any{}, "no action"},
		{"overflow", "playcard", map[string]any{"username": "player1", "player_card_idx": 300}, "overflows uint8"},
		{"negative", "playcard", map[string]any{"username": "player1", "player_card_idx": -1}, "negative"},
		{"fraction", "playcard", map[string]any{"username": "player1", "player_card_idx": 1.5}, "not an unsigned integer"},
		{"missing field", "playcard", map[string]any{"username": "player1"}, "missing field player_card_idx"},
		{"unknown field", "login", map[string]any{"username": "player1", "extra": 1}, "no field extra"},
		{"bad name", "login", map[string]any{"username": "Player1"}, "contains"},
		{"wrong type", "login", map[string]any{"username": 7}, "needs a string"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := cardgameABI.PackAction(tc.action, tc.data)
			if rpckit.KindOf(err) != rpckit.KindInvalidInput {
				t.Fatalf("expected invalid input, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestPackActionStructuredTypes(t *testing.T) {
	abi := ABI{
		Types: []ABIType{{NewTypeName: "names", Type: "name[]"}},
		Structs: []ABIStruct{
			{Name: "base", Fields: []ABIField{{Name: "flag", Type: "bool"}}},
			{Name: "deal", Base: "base", Fields: []ABIField{
				{Name: "players", Type: "names"},
				{Name: "seed", Type: "uint32?"},
				{Name: "memo", Type: "string"},
				{Name: "round", Type: "varuint32$"},
			}},
		},
		Actions: []ABIAction{{Name: "deal", Type: "deal"}},
	}
	data, err := abi.PackAction("deal", map[string]any{
		"flag":    true,
		"players": []string{"eosio"},
		"memo":    "hi",
	})
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	// flag, one name, absent seed, "hi"; the trailing extension is omitted.
	want := "01" + "01" + "0000000000ea3055" + "00" + "026869"
	if got := hex.EncodeToString(data); got != want {
		t.Fatalf("got %s want %s", got, want)
	}

	data, err = abi.PackAction("deal", map[string]any{
		"flag":    false,
		"players": []any{},
		"seed":    7,
		"memo":    "",
		"round":   300,
	})
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	want = "00" + "00" + "01" + "07000000" + "00" + "ac02"
	if got := hex.EncodeToString(data); got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}
