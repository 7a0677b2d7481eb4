package auth

import (
	"fmt"

	"github.com/IMINABO1/Vault/server/auth/key"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

type VaultTokenClaims struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	jwt.StandardClaims
}

// HashSecret salts and hashes a secret (e.g. a lockdown PIN) with the given
// bcrypt cost. Costs outside bcrypt's range fall back to the default.
func HashSecret(secret string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	return string(bytes), err
}

func CheckSecretHash(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}

func EncodeJWT(claims VaultTokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(tokenString string, keyPair *key.KeyPair) (*VaultTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &VaultTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// validate the alg is what you expect:
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyPair.PublicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*VaultTokenClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to VaultTokenClaims")
	}

	if tokenClaims.Subject == "" {
		return nil, fmt.Errorf("invalid jwt: no subject")
	}

	return tokenClaims, nil
}
