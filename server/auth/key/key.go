package key

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt"
	"github.com/lestrrat-go/jwx/jwk"
)

const defaultKid = "vault-key-id"

type JWKS struct {
	Keys []interface{} `json:"keys"`
}

type KeyPair struct {
	Kid        string
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
}

func NewKeyPairFromRSAPrivateKeyPem(pem []byte) (*KeyPair, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("unable to parse RSA private key: %v", err)
	}

	return newKeyPair(privateKey), nil
}

// GenerateKeyPair creates a throwaway key pair. Tokens signed with it do
// not survive a restart.
func GenerateKeyPair() (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("unable to generate RSA key: %v", err)
	}

	return newKeyPair(privateKey), nil
}

func newKeyPair(privateKey *rsa.PrivateKey) *KeyPair {
	return &KeyPair{
		Kid:        defaultKid,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}
}

func (keyPair *KeyPair) JWK() (jwk.Key, error) {
	keyPairJWK, err := jwk.New(keyPair.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("JWK: %v", err)
	}

	if err := keyPairJWK.Set(jwk.KeyIDKey, keyPair.Kid); err != nil {
		return nil, fmt.Errorf("JWK: %v", err)
	}
	if err := keyPairJWK.Set(jwk.AlgorithmKey, "RS256"); err != nil {
		return nil, fmt.Errorf("JWK: %v", err)
	}
	if err := keyPairJWK.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("JWK: %v", err)
	}

	return keyPairJWK, nil
}

func ExportJWKAsJWKS(jwk jwk.Key) JWKS {
	return JWKS{Keys: []interface{}{jwk}}
}

func PublicKeyFromJWK(key jwk.Key) (*rsa.PublicKey, error) {
	publicKey := &rsa.PublicKey{}

	if err := key.Raw(publicKey); err != nil {
		return nil, err
	}

	return publicKey, nil
}
