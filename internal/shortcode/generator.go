// Package shortcode produces and validates short-code candidates.
package shortcode

import (
	"Shortly-Backend/internal/config"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

// customCodePattern bounds caller-supplied codes: alphanumeric, 3-30 chars.
var customCodePattern = regexp.MustCompile(`^[a-zA-Z0-9]{3,30}$`)

// Generator produces candidate short codes from a configured charset.
// It holds no persistent state.
type Generator struct {
	length  int
	charset string
	prefix  string
}

func New(cfg *config.Shortener) *Generator {
	return &Generator{
		length:  cfg.CodeLength,
		charset: cfg.CodeCharset,
		prefix:  cfg.CodePrefix,
	}
}

// Generate returns a random candidate code. Random bytes are mapped onto
// the charset with rejection sampling so every character is equally likely.
func (g *Generator) Generate() (string, error) {
	var sb strings.Builder
	sb.WriteString(g.prefix)

	// Largest multiple of len(charset) that fits in a byte; bytes at or
	// above it are rejected to avoid modulo bias.
	limit := 256 - (256 % len(g.charset))

	buf := make([]byte, g.length*2)
	written := 0
	for written < g.length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			sb.WriteByte(g.charset[int(b)%len(g.charset)])
			written++
			if written == g.length {
				break
			}
		}
	}

	return sb.String(), nil
}

// GenerateFromURL derives a deterministic code from a SHA-256 hash of the
// URL. Repeatable for the same input, so it offers no collision avoidance.
func (g *Generator) GenerateFromURL(url string) string {
	hash := sha256.Sum256([]byte(url))

	var sb strings.Builder
	sb.WriteString(g.prefix)
	for i := 0; i < g.length; i++ {
		sb.WriteByte(g.charset[int(hash[i%len(hash)])%len(g.charset)])
	}

	return sb.String()
}

// IsValidFormat reports whether code matches the configured generated
// shape: the prefix followed by exactly length charset characters.
func (g *Generator) IsValidFormat(code string) bool {
	if !strings.HasPrefix(code, g.prefix) {
		return false
	}
	body := strings.TrimPrefix(code, g.prefix)
	if len(body) != g.length {
		return false
	}
	for i := 0; i < len(body); i++ {
		if !strings.ContainsRune(g.charset, rune(body[i])) {
			return false
		}
	}
	return true
}

// ValidCustomCode reports whether a caller-supplied code is acceptable.
// Custom codes are not required to match the generated length.
func ValidCustomCode(code string) bool {
	return customCodePattern.MatchString(code)
}
