package sharedutil

import (
	"slices"
	"testing"
	"time"
)

func TestDurationToTimeString(t *testing.T) {
	for _, tt := range []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{-5 * time.Second, "0:00"},
		{59*time.Second + 600*time.Millisecond, "1:00"},
		{3*time.Minute + 7*time.Second, "3:07"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	} {
		if got := DurationToTimeString(tt.d); got != tt.want {
			t.Errorf("DurationToTimeString(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFilterAndMap(t *testing.T) {
	names := []string{"a.mp3", "b.mp4", "c.wav"}
	even := FilterSlice([]int{0, 1, 2, 3}, func(i int) bool { return i%2 == 0 })
	got := MapSlice(even, func(i int) string { return names[i] })
	if !slices.Equal(got, []string{"a.mp3", "c.wav"}) {
		t.Errorf("unexpected result %v", got)
	}
	if FilterSlice[int](nil, nil) != nil || MapSlice[int, int](nil, nil) != nil {
		t.Error("nil input should give nil output")
	}
	if set := ToSet(names); len(set) != 3 {
		t.Errorf("unexpected set %v", set)
	}
}
