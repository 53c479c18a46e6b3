// Package solana validates the base58 identifiers carried by swap records.
package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	// AddressLength is the decoded size of a public key or mint.
	AddressLength = 32
	// SignatureLength is the decoded size of a transaction signature.
	SignatureLength = 64
)

// Well-known quote mints.
const (
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintWSOL = "So11111111111111111111111111111111111111112"
)

var (
	ErrInvalidBase58 = errors.New("invalid base58")
	ErrInvalidLength = errors.New("invalid decoded length")
	ErrOffCurve      = errors.New("address is not an ed25519 public key")
)

// ParseAddress decodes a 32-byte base58 address.
func ParseAddress(s string) ([]byte, error) {
	return decode(s, AddressLength)
}

// ValidateMint checks that s decodes to an address. Mints may be
// program-derived, so no curve check applies.
func ValidateMint(s string) error {
	_, err := ParseAddress(s)
	return err
}

// ValidateWallet checks that s decodes to an address that lies on the
// ed25519 curve. Signing wallets always do; program-derived addresses never do.
func ValidateWallet(s string) error {
	b, err := ParseAddress(s)
	if err != nil {
		return err
	}
	if !IsOnCurve(b) {
		return fmt.Errorf("%q: %w", s, ErrOffCurve)
	}
	return nil
}

// ValidateSignature checks that s decodes to a 64-byte signature.
func ValidateSignature(s string) error {
	_, err := decode(s, SignatureLength)
	return err
}

// IsOnCurve reports whether b is a valid compressed ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != AddressLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// Encode returns the base58 form of b.
func Encode(b []byte) string {
	return base58.Encode(b)
}

func decode(s string, size int) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty value: %w", ErrInvalidBase58)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", s, ErrInvalidBase58)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%q: %d bytes, want %d: %w", s, len(b), size, ErrInvalidLength)
	}
	return b, nil
}
