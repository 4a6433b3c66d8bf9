package securestore

import (
	"errors"
	"testing"
)

var fastParams = Params{Time: 1, MemoryKB: 1024, Threads: 1}

func TestSealOpenRoundtrip(t *testing.T) {
	data, err := SealWithParams("pass", "session", []byte("secret"), fastParams)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	plain, err := Open("pass", "session", data)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if string(plain) != "secret" {
		t.Fatalf("unexpected plaintext: %q", string(plain))
	}
}

func TestOpenWrongPassphraseFailsAuth(t *testing.T) {
	data, err := SealWithParams("pass", "session", []byte("secret"), fastParams)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if _, err := Open("other", "session", data); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestOpenRejectsForeignPurpose(t *testing.T) {
	data, err := SealWithParams("pass", "session", []byte("secret"), fastParams)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if _, err := Open("pass", "other", data); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestOpenTamperedFailsDeterministically(t *testing.T) {
	data, err := SealWithParams("pass", "session", []byte("secret"), fastParams)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	data[len(data)-2] ^= 0xFF
	_, err = Open("pass", "session", data)
	if !errors.Is(err, ErrAuthFailed) && !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrAuthFailed or ErrInvalid, got %v", err)
	}
}

func TestOpenPlaintextData(t *testing.T) {
	if _, err := Open("pass", "session", []byte(`{"a":1}`)); !errors.Is(err, ErrPlaintext) {
		t.Fatalf("expected ErrPlaintext, got %v", err)
	}
}
