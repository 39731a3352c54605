package utils

import "testing"

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("привет", 3); got != "при" {
		t.Errorf("TruncateRunes=%q", got)
	}
	if got := TruncateRunes("abc", 10); got != "abc" {
		t.Errorf("TruncateRunes=%q", got)
	}
	if got := TruncateRunes("abc", 0); got != "" {
		t.Errorf("TruncateRunes=%q", got)
	}
}

func TestRuneLen(t *testing.T) {
	if RuneLen("кондиционер") != 11 {
		t.Error("RuneLen should count runes, not bytes")
	}
}
