package deviceauth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"math/big"
	"testing"
	"time"
)

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return key
}

func signChallenge(t *testing.T, key *rsa.PrivateKey, challenge string) string {
	t.Helper()
	digest := sha256.Sum256([]byte(challenge))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("failed to sign challenge: %v", err)
	}
	return base64.StdEncoding.EncodeToString(sig)
}

func selfSignedCertPEM(t *testing.T, key *rsa.PrivateKey) []byte {
	t.Helper()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "device-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func pkcs1PEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey),
	})
}

func spkiPEM(t *testing.T, key *rsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal SPKI key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func TestVerifySignatureAcceptedEncodings(t *testing.T) {
	key := generateTestKey(t)
	challenge := "enrollment-code-123"
	signature := signChallenge(t, key, challenge)

	spkiDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal SPKI key: %v", err)
	}

	cases := []struct {
		name string
		key  []byte
	}{
		{"certificate PEM", selfSignedCertPEM(t, key)},
		{"PKCS1 PEM", pkcs1PEM(key)},
		{"SPKI PEM", spkiPEM(t, key)},
		{"SPKI DER", spkiDER},
		{"PKCS1 DER", x509.MarshalPKCS1PublicKey(&key.PublicKey)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := VerifySignature(tc.key, challenge, signature); err != nil {
				t.Fatalf("VerifySignature(%s) = %v, want nil", tc.name, err)
			}
		})
	}
}

func TestVerifySignatureMismatch(t *testing.T) {
	key := generateTestKey(t)
	signature := signChallenge(t, key, "the-real-challenge")

	err := VerifySignature(spkiPEM(t, key), "a-different-challenge", signature)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("VerifySignature() = %v, want ErrSignatureMismatch", err)
	}
}

func TestVerifySignatureRejectsOldKeyAfterRotation(t *testing.T) {
	oldKey := generateTestKey(t)
	newKey := generateTestKey(t)
	challenge := "login-code-456"

	// A signature made with the old key must not verify under the new key.
	signature := signChallenge(t, oldKey, challenge)
	if err := VerifySignature(spkiPEM(t, newKey), challenge, signature); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("VerifySignature() = %v, want ErrSignatureMismatch", err)
	}
}

func TestVerifySignatureUnsupportedKey(t *testing.T) {
	key := generateTestKey(t)
	signature := signChallenge(t, key, "challenge")

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate EC key: %v", err)
	}
	ecDER, err := x509.MarshalPKIXPublicKey(&ecKey.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal EC key: %v", err)
	}

	cases := []struct {
		name string
		key  []byte
	}{
		{"unknown PEM block", pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{0x30}})},
		{"not DER at all", []byte("definitely not a key")},
		{"empty", nil},
		{"EC SPKI key", pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: ecDER})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := VerifySignature(tc.key, "challenge", signature)
			if !errors.Is(err, ErrUnsupportedKey) {
				t.Fatalf("VerifySignature(%s) = %v, want ErrUnsupportedKey", tc.name, err)
			}
		})
	}
}

func TestVerifySignatureMalformedKey(t *testing.T) {
	key := generateTestKey(t)
	signature := signChallenge(t, key, "challenge")

	corrupted := pkcs1PEM(key)
	// Corrupt the body of an otherwise well-formed PEM key.
	copy(corrupted[40:], []byte("garbagegarbagegarbage"))

	err := VerifySignature(corrupted, "challenge", signature)
	if !errors.Is(err, ErrMalformedKey) {
		t.Fatalf("VerifySignature(corrupted) = %v, want ErrMalformedKey", err)
	}
}
