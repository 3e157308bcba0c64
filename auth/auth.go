// Package auth implements the pluggable authentication algorithms
// negotiated during the MySQL handshake as pure functions: given a
// password, a salt, and (where required) a server RSA public key, each
// plugin computes the bytes to send back. None of these functions touch
// the network; the connection-phase state machine in the conn package
// drives which one runs and when (spec.md §4.4).
package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // required by the mysql_native_password algorithm
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"

	"github.com/mickamy/mysqlwire/mysqlerr"
)

// Plugin names as they appear on the wire (spec.md §4.4).
const (
	NativePassword    = "mysql_native_password"
	CachingSHA2       = "caching_sha2_password"
	SHA256Password    = "sha256_password"
	ClearTextPassword = "mysql_clear_password"
)

// NativePasswordFastPhase computes the mysql_native_password response:
// SHA1(password) XOR SHA1(salt ++ SHA1(SHA1(password))) (spec.md §4.4,
// §8's byte-exact reference vector).
func NativePasswordFastPhase(password string, salt []byte) []byte {
	if password == "" {
		return nil
	}
	pwHash := sha1Sum([]byte(password))
	pwHashHash := sha1Sum(pwHash[:])

	h := sha1.New() //nolint:gosec
	h.Write(salt)
	h.Write(pwHashHash[:])
	saltedHash := h.Sum(nil)

	out := make([]byte, len(pwHash))
	for i := range out {
		out[i] = pwHash[i] ^ saltedHash[i]
	}
	return out
}

// CachingSHA2FastPhase computes the caching_sha2_password fast-auth
// response: SHA256(password) XOR SHA256(SHA256(SHA256(password)) ++
// salt) (spec.md §4.4).
func CachingSHA2FastPhase(password string, salt []byte) []byte {
	if password == "" {
		return nil
	}
	pwHash := sha256.Sum256([]byte(password))
	pwHashHash := sha256.Sum256(pwHash[:])

	h := sha256.New()
	h.Write(pwHashHash[:])
	h.Write(salt)
	saltedHash := h.Sum(nil)

	out := make([]byte, len(pwHash))
	for i := range out {
		out[i] = pwHash[i] ^ saltedHash[i]
	}
	return out
}

// CachingSHA2FullPhaseOverTLS returns the password as a NUL-terminated
// string, the only thing the server expects once the connection is
// known to be encrypted (spec.md §4.4).
func CachingSHA2FullPhaseOverTLS(password string) []byte {
	return append([]byte(password), 0x00)
}

// RSAEncryptPassword XOR-pads password with salt and encrypts the
// result with the server's RSA public key using OAEP-SHA1, the scheme
// both caching_sha2_password and sha256_password use when the
// connection is not already encrypted (spec.md §4.4).
func RSAEncryptPassword(password string, salt []byte, pemPublicKey []byte) ([]byte, error) {
	pub, err := parseRSAPublicKey(pemPublicKey)
	if err != nil {
		return nil, err
	}

	xored := xorWithRepeatingKey([]byte(password+"\x00"), salt)

	ciphertext, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, xored, nil) //nolint:gosec
	if err != nil {
		return nil, mysqlerr.Wrap(mysqlerr.KindAuthFailed, true, err, "rsa-oaep encrypt failed")
	}
	return ciphertext, nil
}

func parseRSAPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, mysqlerr.New(mysqlerr.KindAuthFailed, true, "server public key is not valid PEM")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, mysqlerr.Wrap(mysqlerr.KindAuthFailed, true, err, "failed to parse server public key")
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, mysqlerr.New(mysqlerr.KindAuthFailed, true, "server public key is not RSA")
	}
	return pub, nil
}

func xorWithRepeatingKey(data, key []byte) []byte {
	if len(key) == 0 {
		return data
	}
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}

func sha1Sum(b []byte) [20]byte {
	return sha1.Sum(b) //nolint:gosec
}
