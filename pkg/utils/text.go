package utils

// TruncateRunes returns s truncated to at most maxRunes runes.
// If maxRunes is 0 or negative, returns the empty string.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes])
}

// RuneLen returns the length of s in runes.
func RuneLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
