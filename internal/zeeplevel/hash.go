package zeeplevel

import (
	"crypto/sha1"
	"fmt"
	"strings"
)

// ContentHash computes the canonical fingerprint of a level from its lines.
//
// Only the content that affects gameplay is hashed: the skybox/ground pair
// from the times line (normalized to "unknown,unknown" when the line does
// not split into exactly six fields) followed by every block line. Edits to
// the header, camera line or medal times never change the hash.
func ContentHash(lines []string) string {
	return hashText(canonicalText(lines))
}

func canonicalText(lines []string) string {
	trailer := "unknown,unknown"
	if len(lines) > 2 {
		fields := strings.Split(lines[2], ",")
		if len(fields) == 6 {
			trailer = fields[len(fields)-2] + "," + fields[len(fields)-1]
		}
	}

	parts := make([]string, 0, len(lines))
	parts = append(parts, trailer)
	if len(lines) > 3 {
		parts = append(parts, lines[3:]...)
	}
	return strings.Join(parts, "\n")
}

// hashText returns the uppercase hex SHA-1 of the UTF-8 bytes of input.
func hashText(input string) string {
	sum := sha1.Sum([]byte(input))
	return fmt.Sprintf("%X", sum)
}
