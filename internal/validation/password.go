// Package validation provides input validation utilities
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8
	// MaxPasswordLength guards bcrypt's 72 byte input limit with headroom for multibyte runes.
	MaxPasswordLength = 128
	// maxSimilarity is the highest accepted similarity ratio between a password and the user's email.
	maxSimilarity = 0.7
)

// PasswordErrors collects every rule a password failed.
type PasswordErrors []string

func (e PasswordErrors) Error() string {
	return strings.Join(e, " ")
}

// ValidatePassword applies the account password rules.
// email may be empty when the user is not known yet.
func ValidatePassword(password, email string) error {
	var problems PasswordErrors

	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("This password is too short. It must contain at least %d characters.", MinPasswordLength))
	}
	if n > MaxPasswordLength {
		problems = append(problems, fmt.Sprintf("This password is too long. It must contain at most %d characters.", MaxPasswordLength))
	}
	if email != "" && tooSimilarToEmail(password, email) {
		problems = append(problems, "The password is too similar to the email address.")
	}
	if isCommonPassword(password) {
		problems = append(problems, "This password is too common.")
	}
	if isAllDigits(password) {
		problems = append(problems, "This password is entirely numeric.")
	}

	if len(problems) == 0 {
		return nil
	}
	return problems
}

// PasswordProblems returns the individual messages of a ValidatePassword error.
func PasswordProblems(err error) []string {
	var pe PasswordErrors
	if errors.As(err, &pe) {
		return pe
	}
	if err != nil {
		return []string{err.Error()}
	}
	return nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isCommonPassword(password string) bool {
	_, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]
	return ok
}

func tooSimilarToEmail(password, email string) bool {
	password = strings.ToLower(password)
	email = strings.ToLower(email)

	parts := []string{email}
	parts = append(parts, strings.FieldsFunc(email, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})...)

	for _, part := range parts {
		if len(part) < 3 {
			continue
		}
		if similarity(password, part) >= maxSimilarity {
			return true
		}
	}
	return false
}

// similarity is the Ratcliff/Obershelp ratio 2*M/T of two strings.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

func matchingRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestCommonRun(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingRunes(a[:ai], b[:bi]) +
		matchingRunes(a[ai+size:], b[bi+size:])
}

func longestCommonRun(a, b []rune) (int, int, int) {
	bestA, bestB, bestSize := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestSize {
					bestSize = cur[j]
					bestA = i - cur[j]
					bestB = j - cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestA, bestB, bestSize
}

var commonPasswords = func() map[string]struct{} {
	list := []string{
		"123456", "password", "12345678", "qwerty", "123456789", "12345", "1234", "111111",
		"1234567", "dragon", "123123", "baseball", "abc123", "football", "monkey", "letmein",
		"696969", "shadow", "master", "666666", "qwertyuiop", "123321", "mustang", "1234567890",
		"michael", "654321", "superman", "1qaz2wsx", "7777777", "121212", "000000", "qazwsx",
		"123qwe", "killer", "trustno1", "jordan", "jennifer", "zxcvbnm", "asdfgh", "hunter",
		"buster", "soccer", "harley", "batman", "andrew", "tigger", "sunshine", "iloveyou",
		"2000", "charlie", "robert", "thomas", "hockey", "ranger", "daniel", "starwars",
		"klaster", "112233", "george", "computer", "michelle", "jessica", "pepper", "1111",
		"zxcvbn", "555555", "11111111", "131313", "freedom", "777777", "pass", "maggie",
		"159753", "aaaaaa", "ginger", "princess", "joshua", "cheese", "amanda", "summer",
		"love", "ashley", "nicole", "chelsea", "biteme", "matthew", "access", "yankees",
		"987654321", "dallas", "austin", "thunder", "taylor", "matrix", "minecraft", "password1",
		"password123", "welcome", "welcome1", "admin", "admin123", "login", "passw0rd", "qwerty123",
		"abcdefgh", "iloveyou1", "football1", "baseball1", "whatever", "letmein1", "changeme",
		"secret", "default", "administrator", "qwertyui", "asdfghjkl", "1q2w3e4r", "1q2w3e4r5t",
		"zaq12wsx", "q1w2e3r4", "00000000", "88888888", "87654321", "11223344", "aaaaaaaa",
	}
	m := make(map[string]struct{}, len(list))
	for _, p := range list {
		m[p] = struct{}{}
	}
	return m
}()
