package usecase

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateCode produces a 6-digit one-time code in [100000, 999999]
// together with its issuance timestamp. Codes guard verification and
// password reset flows, so the source must be crypto/rand; a
// predictable code is an account-takeover vector.
func GenerateCode(now time.Time) (string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), now, nil
}
