// Package numeral converts integers to canonical Roman numerals.
package numeral

import "strings"

// Keys are the letters a player may submit, in keyboard order
var Keys = []string{"I", "V", "X", "L", "C", "D", "M"}

var table = []struct {
	value  int
	symbol string
}{
	{1000, "M"},
	{900, "CM"},
	{500, "D"},
	{400, "CD"},
	{100, "C"},
	{90, "XC"},
	{50, "L"},
	{40, "XL"},
	{10, "X"},
	{9, "IX"},
	{5, "V"},
	{4, "IV"},
	{1, "I"},
}

// ToRoman returns the Roman numeral for n. Callers guarantee n >= 1.
func ToRoman(n int) string {
	var b strings.Builder
	for _, entry := range table {
		for n >= entry.value {
			b.WriteString(entry.symbol)
			n -= entry.value
		}
	}
	return b.String()
}

// IsKey reports whether letter is one of the submittable letters
func IsKey(letter string) bool {
	for _, k := range Keys {
		if k == letter {
			return true
		}
	}
	return false
}

// NextLetter returns the letter that extends partial towards the numeral for n.
// It returns "" if partial is not a strict prefix of that numeral.
func NextLetter(n int, partial string) string {
	target := ToRoman(n)
	if len(partial) >= len(target) || !strings.HasPrefix(target, partial) {
		return ""
	}
	return target[len(partial) : len(partial)+1]
}

// IsStrictPrefix reports whether partial is a proper prefix of the numeral for n
func IsStrictPrefix(n int, partial string) bool {
	target := ToRoman(n)
	return len(partial) < len(target) && strings.HasPrefix(target, partial)
}
