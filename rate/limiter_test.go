package rate

import (
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	burst := 1

	interval := 10 * time.Millisecond
	lim := Every(interval)
	r := NewLimiter(burst, time.Hour, lim)
	defer r.Stop()

	tooshort := 1 * time.Millisecond

	client := "0x52908400098527886E0F7030069857D2E4169EE7"
	expected := []bool{true, false, true, true, false, false}
	waits := []time.Duration{tooshort, interval, interval, tooshort, tooshort, tooshort}
	for i, exp := range expected {
		if got := r.Check(client); got != exp {
			t.Fatalf("iteration %d: expected %v, but got %v", i, exp, got)
		}
		time.Sleep(waits[i])
	}
}

func TestLimiterWithBurst(t *testing.T) {
	client := "127.0.0.1"
	burst := 10

	interval := 100 * time.Millisecond
	lim := Every(interval)

	tooshort := 10 * time.Millisecond

	shortest := 1 * time.Millisecond

	expected := []bool{true, true, true, true, true, true, true, true, true, true}
	waits := []time.Duration{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

	expected = append(expected, false, true, true, false, false, false)
	waits = append(waits, interval, interval, tooshort, tooshort, shortest, shortest)

	rr := NewLimiter(burst, time.Hour, lim)
	defer rr.Stop()
	for i, exp := range expected {
		if got := rr.Check(client); got != exp {
			t.Fatalf("iteration %d: expected %v, but got %v", i, exp, got)
		}
		time.Sleep(waits[i])
	}
}

func TestLimiterEvictsIdleClients(t *testing.T) {
	l := NewLimiter(1, time.Millisecond, Every(time.Hour))
	defer l.Stop()

	if !l.Check("a") {
		t.Fatal("first request must pass")
	}
	if l.Check("a") {
		t.Fatal("second request must be limited")
	}

	time.Sleep(5 * time.Millisecond)
	l.evict()

	if !l.Check("a") {
		t.Fatal("evicted client should get a fresh bucket")
	}
}
