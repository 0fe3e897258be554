package quiz

import "testing"

func TestAdmit(t *testing.T) {
	tests := []struct {
		current   int64
		max       int
		admit     bool
		remaining int
	}{
		{current: 0, max: 1, admit: true, remaining: 1},
		{current: 1, max: 1, admit: false, remaining: 0},
		{current: 5, max: 1, admit: false, remaining: 0},
		{current: 19, max: 20, admit: true, remaining: 1},
		{current: 20, max: 20, admit: false, remaining: 0},
	}

	for _, tc := range tests {
		if got := Admit(tc.current, tc.max); got != tc.admit {
			t.Errorf("Admit(%d, %d) = %v, want %v", tc.current, tc.max, got, tc.admit)
		}
		if got := Remaining(tc.current, tc.max); got != tc.remaining {
			t.Errorf("Remaining(%d, %d) = %d, want %d", tc.current, tc.max, got, tc.remaining)
		}
	}
}

func TestModeValid(t *testing.T) {
	for _, m := range []Mode{ModeLite, ModeHard} {
		if !m.Valid() {
			t.Errorf("%q should be valid", m)
		}
	}
	if Mode("strict").Valid() {
		t.Errorf("unknown mode accepted")
	}
}
