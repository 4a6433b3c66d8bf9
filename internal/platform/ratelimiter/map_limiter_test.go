package ratelimiter

import (
	"fmt"
	"testing"
	"time"
)

func TestNilLimiterAllowsEverything(t *testing.T) {
	l := New(0, 1, 0)
	if l != nil {
		t.Fatal("expected nil limiter for zero rate")
	}
	for i := 0; i < 10; i++ {
		if !l.Allow("player1") {
			t.Fatal("nil limiter must allow")
		}
	}
}

func TestAccountLimiterIsPerAccount(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("player1") || !l.Allow("player1") {
		t.Fatal("burst of two must be allowed")
	}
	if l.Allow("player1") {
		t.Fatal("third call within the same instant must be refused")
	}
	if !l.Allow("player2") {
		t.Fatal("other accounts have their own bucket")
	}
	now = now.Add(time.Second)
	if !l.Allow("player1") {
		t.Fatal("token must refill after one second")
	}
}

func TestAccountLimiterEvictsIdleBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(100, 100, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("stale")
	now = now.Add(2 * time.Minute)
	for i := 0; i < sweepEvery; i++ {
		l.Allow(fmt.Sprintf("p%d", i%4))
	}
	if got := l.tracked(); got != 4 {
		t.Fatalf("expected idle bucket to be evicted, tracking %d", got)
	}
}
