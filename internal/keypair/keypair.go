// Package keypair generates RSA key pairs for Snowflake key-pair logins.
package keypair

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"

	"github.com/rescale/rescale-staging/internal/constants"
	"github.com/rescale/rescale-staging/internal/secret"
)

// KeyPair is a PEM encoded RSA key pair. Only PublicKey may be sent to the
// workspace-management API.
type KeyPair struct {
	PublicKey  string
	PrivateKey secret.String
}

// Generator produces key pairs. The workspace provider depends on this
// interface so tests can inject fixed keys.
type Generator interface {
	Generate() (KeyPair, error)
}

// RSAGenerator generates RSA keys of Bits size.
type RSAGenerator struct {
	Bits int
	// Random defaults to crypto/rand.Reader.
	Random io.Reader
}

var _ Generator = (*RSAGenerator)(nil)

// NewGenerator returns a generator producing keys Snowflake accepts.
func NewGenerator() *RSAGenerator {
	return &RSAGenerator{Bits: constants.SnowflakeKeyBits}
}

// Generate creates a key pair: the private key as unencrypted PKCS#8 PEM and
// the public key as PKIX PEM.
func (g *RSAGenerator) Generate() (KeyPair, error) {
	random := g.Random
	if random == nil {
		random = rand.Reader
	}
	bits := g.Bits
	if bits == 0 {
		bits = constants.SnowflakeKeyBits
	}

	key, err := rsa.GenerateKey(random, bits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to encode private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to encode public key: %w", err)
	}

	return KeyPair{
		PublicKey:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		PrivateKey: secret.String(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
	}, nil
}
