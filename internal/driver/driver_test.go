package driver

import "testing"

func TestTickTimerForBpm(t *testing.T) {
	// timer = round(8000*60 / (48*bpm))
	cases := []struct {
		bpm   int
		timer int
	}{
		{120, 83},
		{100, 100},
		{60, 167},
		{40, 250},
		{150, 67},
	}
	for _, c := range cases {
		timer, err := TickTimerForBpm(c.bpm)
		if err != nil {
			t.Fatalf("TickTimerForBpm(%d) failed: %v", c.bpm, err)
		}
		if timer != c.timer {
			t.Fatalf("TickTimerForBpm(%d) = %d, want %d", c.bpm, timer, c.timer)
		}
	}
}

func TestTickTimerForBpmOutOfRange(t *testing.T) {
	for _, bpm := range []int{0, -10, 30, 160, 10000} {
		if _, err := TickTimerForBpm(bpm); err == nil {
			t.Fatalf("TickTimerForBpm(%d) should have failed", bpm)
		}
	}
}
