package directory

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
)

const (
	// CodeAlphabet leaves out I, O, 0 and 1.
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6
)

// GenerateCode - a uniformly random room code. The alphabet has 32 symbols, so
// masking a random byte keeps the distribution uniform.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = CodeAlphabet[int(b)%len(CodeAlphabet)]
	}

	return string(buf), nil
}

// NormalizeCode - upper cases a user supplied code and checks its shape.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != CodeLength {
		return "", fmt.Errorf("%w: %q", apperror.ErrInvalidRoomCode, code)
	}

	for _, r := range code {
		if !strings.ContainsRune(CodeAlphabet, r) {
			return "", fmt.Errorf("%w: %q", apperror.ErrInvalidRoomCode, code)
		}
	}

	return code, nil
}
