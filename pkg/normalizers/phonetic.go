package normalizers

import (
	"strings"
	"unicode"
)

// Soundex calculates the four character Soundex code of a string. Strings
// without letters encode to "".
func Soundex(str string) string {
	letters := []rune(strings.ToUpper(keep(str, unicode.IsLetter)))
	if len(letters) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteRune(letters[0])
	prevCode := soundexCode(letters[0])

	for _, char := range letters[1:] {
		if result.Len() >= 4 {
			break
		}
		code := soundexCode(char)
		// H and W do not separate letters with the same code.
		if char == 'H' || char == 'W' {
			continue
		}
		if code != '0' && code != prevCode {
			result.WriteByte(code)
		}
		prevCode = code
	}

	for result.Len() < 4 {
		result.WriteByte('0')
	}
	return result.String()
}

func soundexCode(char rune) byte {
	switch char {
	case 'B', 'F', 'P', 'V':
		return '1'
	case 'C', 'G', 'J', 'K', 'Q', 'S', 'X', 'Z':
		return '2'
	case 'D', 'T':
		return '3'
	case 'L':
		return '4'
	case 'M', 'N':
		return '5'
	case 'R':
		return '6'
	default:
		return '0'
	}
}

// Metaphone calculates a simplified Metaphone encoding of at most six codes.
func Metaphone(str string) string {
	word := []rune(strings.ToUpper(keep(str, unicode.IsLetter)))
	if len(word) == 0 {
		return ""
	}

	var metaphone strings.Builder
	var prevCode rune
	for i := 0; i < len(word) && metaphone.Len() < 6; i++ {
		code := metaphoneCode(word, i)
		if code != 0 && code != prevCode {
			metaphone.WriteRune(code)
			prevCode = code
		}
	}
	return metaphone.String()
}

func metaphoneCode(word []rune, pos int) rune {
	char := word[pos]
	next := rune(0)
	if pos+1 < len(word) {
		next = word[pos+1]
	}

	switch char {
	case 'A', 'E', 'I', 'O', 'U':
		if pos == 0 {
			return char
		}
		return 0
	case 'C':
		if next == 'I' || next == 'E' || next == 'Y' {
			return 'S'
		}
		return 'K'
	case 'D':
		return 'T'
	case 'G':
		return 'J'
	case 'P':
		if next == 'H' {
			return 'F'
		}
		return 'P'
	case 'Q':
		return 'K'
	case 'V':
		return 'F'
	case 'X', 'Z':
		return 'S'
	case 'H', 'W', 'Y':
		return 0
	case 'B', 'F', 'J', 'K', 'L', 'M', 'N', 'R', 'S', 'T':
		return char
	default:
		return 0
	}
}
