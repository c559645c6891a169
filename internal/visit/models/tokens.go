package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// TokenGenerator issues the gate credentials of an invitation. Both are
// bearer credentials, so they come from a cryptographic source.
type TokenGenerator struct {
	otpLength int
	qrPrefix  string
	rand      io.Reader
}

func NewTokenGenerator(otpLength int, qrPrefix string) *TokenGenerator {
	return &TokenGenerator{otpLength: otpLength, qrPrefix: qrPrefix, rand: rand.Reader}
}

var ten = big.NewInt(10)

// OTP returns otpLength decimal digits.
func (g *TokenGenerator) OTP() (string, error) {
	var b strings.Builder
	b.Grow(g.otpLength)
	for i := 0; i < g.otpLength; i++ {
		n, err := rand.Int(g.rand, ten)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// QR returns prefix-XXXXXXXXXXXX with twelve upper-case hex characters.
func (g *TokenGenerator) QR() (string, error) {
	buf := make([]byte, 6)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("generate qr code: %w", err)
	}
	return g.qrPrefix + "-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}
