package util

import (
	"testing"
	"time"
)

func TestTimer(t *testing.T) {
	var zero Timer
	if zero.Elapsed() != 0 || zero.ElapsedUs() != 0 {
		t.Fatalf("unstarted timer should report zero")
	}

	timer := StartTimer()
	time.Sleep(2 * time.Millisecond)
	if timer.ElapsedUs() < 2000 {
		t.Fatalf("expected at least 2000us got %d", timer.ElapsedUs())
	}
}
