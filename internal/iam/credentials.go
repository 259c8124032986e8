package iam

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	loginIDPrefix      = "PAT-"
	loginIDLength      = 6
	patientPassLength  = 8
	loginIDCharset     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	patientPassCharset = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// CredentialGenerator produces patient login credentials
type CredentialGenerator struct{}

// NewCredentialGenerator creates a credential generator
func NewCredentialGenerator() *CredentialGenerator {
	return &CredentialGenerator{}
}

// GenerateLoginID returns a new login ID of the form PAT-XXXXXX with six
// upper-case alphanumeric characters
func (g *CredentialGenerator) GenerateLoginID() (string, error) {
	suffix, err := randomString(loginIDCharset, loginIDLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate login ID: %w", err)
	}
	return loginIDPrefix + suffix, nil
}

// GeneratePassword returns a new eight-character lower-case alphanumeric
// password
func (g *CredentialGenerator) GeneratePassword() (string, error) {
	password, err := randomString(patientPassCharset, patientPassLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return password, nil
}

func randomString(charset string, length int) (string, error) {
	out := make([]byte, length)
	for i := range out {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random character: %w", err)
		}
		out[i] = charset[num.Int64()]
	}
	return string(out), nil
}
