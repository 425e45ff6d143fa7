package slug

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	alphabet      = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	maxBaseLength = 60
	suffixLength  = 6
)

// GenerateSecure creates a cryptographically secure random Base62 string.
func GenerateSecure(length int) (string, error) {
	return generate(length, alphabet)
}

func generate(length int, chars string) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid slug length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	maxRandomByte := 256 - (256 % len(chars))

	out := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if int(b) >= maxRandomByte {
				continue
			}
			out[written] = chars[int(b)%len(chars)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(out), nil
}

// Slugify turns a display name into a lowercase, URL-safe slug.
// Accents are folded, everything else that is not a letter or digit becomes
// a single dash.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range norm.NFKD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			lastDash = false
		case r == 'ß':
			b.WriteString("ss")
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	s := strings.Trim(b.String(), "-")
	if len(s) > maxBaseLength {
		s = strings.TrimRight(s[:maxBaseLength], "-")
	}
	return s
}

// Unique appends a random lowercase suffix to the slugified name. Callers
// retry with a fresh value when the store reports a collision.
func Unique(name string) (string, error) {
	suffix, err := generate(suffixLength, lowerAlphabet)
	if err != nil {
		return "", err
	}
	base := Slugify(name)
	if base == "" {
		base = "org"
	}
	return base + "-" + suffix, nil
}
