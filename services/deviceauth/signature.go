// File: trustlink/services/deviceauth/signature.go
package deviceauth

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// Signature verification failure modes. These are expected outcomes, not
// faults; parsing problems never escape as panics.
var (
	ErrUnsupportedKey    = errors.New("public key encoding is not supported")
	ErrMalformedKey      = errors.New("public key material is malformed")
	ErrSignatureMismatch = errors.New("signature does not match challenge")
)

// VerifySignature checks an RSASSA-PKCS1-v1_5/SHA-256 signature over the
// challenge string. The public key material may be an X.509 certificate, a
// PKCS#1 RSA public key, or an SPKI key, in PEM or DER form. Any other
// encoding is rejected before a cryptographic call is made.
func VerifySignature(publicKeyMaterial []byte, challenge, signatureB64 string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformedKey, r)
		}
	}()

	pub, err := parseRSAPublicKey(publicKeyMaterial)
	if err != nil {
		return err
	}

	signature, err := decodeSignature(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}

	digest := sha256.Sum256([]byte(challenge))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature); err != nil {
		return ErrSignatureMismatch
	}
	return nil
}

// parseRSAPublicKey sniffs the key encoding structurally and parses it.
// PEM blocks are recognized by type; bare DER must at least open an ASN.1
// SEQUENCE before any parser runs.
func parseRSAPublicKey(material []byte) (*rsa.PublicKey, error) {
	if block, _ := pem.Decode(material); block != nil {
		switch block.Type {
		case "CERTIFICATE":
			return rsaKeyFromCertificate(block.Bytes)
		case "RSA PUBLIC KEY":
			pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
			}
			return pub, nil
		case "PUBLIC KEY":
			return rsaKeyFromSPKI(block.Bytes)
		default:
			return nil, fmt.Errorf("%w: unrecognized PEM block %q", ErrUnsupportedKey, block.Type)
		}
	}

	// Bare DER. An X.509 certificate, SPKI structure, and PKCS#1 key all
	// open with a SEQUENCE tag; anything else is not a key encoding we take.
	if len(material) == 0 || material[0] != 0x30 {
		return nil, ErrUnsupportedKey
	}
	if cert, err := x509.ParseCertificate(material); err == nil {
		return rsaKeyFromParsedCertificate(cert)
	}
	if pub, err := x509.ParsePKIXPublicKey(material); err == nil {
		return rsaKeyFromPublicKey(pub)
	}
	if pub, err := x509.ParsePKCS1PublicKey(material); err == nil {
		return pub, nil
	}
	return nil, ErrMalformedKey
}

func rsaKeyFromCertificate(der []byte) (*rsa.PublicKey, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return rsaKeyFromParsedCertificate(cert)
}

func rsaKeyFromParsedCertificate(cert *x509.Certificate) (*rsa.PublicKey, error) {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: certificate does not carry an RSA key", ErrUnsupportedKey)
	}
	return pub, nil
}

func rsaKeyFromSPKI(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return rsaKeyFromPublicKey(pub)
}

func rsaKeyFromPublicKey(pub interface{}) (*rsa.PublicKey, error) {
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrUnsupportedKey)
	}
	return rsaPub, nil
}

// decodeSignature accepts standard base64 with a raw URL-safe fallback.
func decodeSignature(signatureB64 string) ([]byte, error) {
	if sig, err := base64.StdEncoding.DecodeString(signatureB64); err == nil {
		return sig, nil
	}
	return base64.RawURLEncoding.DecodeString(signatureB64)
}
