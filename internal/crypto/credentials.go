// Package crypto resolves venue API credentials from opaque references and
// provides the password-based encryption used for credential files.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	saltLen          = 16
	aesKeyLen        = 32
	currentVersion   = 1
)

// sealedJSON is the on-disk format for an encrypted credential file.
type sealedJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Credentials is an API key pair for one venue. It never prints its secret.
type Credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// Empty reports whether no key was resolved.
func (c Credentials) Empty() bool {
	return c.APIKey == "" && c.APISecret == ""
}

// String implements fmt.Stringer with the secret masked.
func (c Credentials) String() string {
	if c.Empty() {
		return "credentials(none)"
	}
	return "credentials(***)"
}

// LogValue implements slog.LogValuer so credentials are masked in logs.
func (c Credentials) LogValue() slog.Value {
	return slog.StringValue(c.String())
}

// Resolver turns a credentials_ref into Credentials.
//
// Supported references:
//
//	""               no credentials (public endpoints)
//	env:PREFIX       PREFIX_API_KEY and PREFIX_API_SECRET from the environment
//	file:/some/path  JSON produced by Seal, decrypted with Password
type Resolver struct {
	Password string
	Getenv   func(string) string
}

// NewResolver returns a Resolver reading the process environment.
func NewResolver(password string) *Resolver {
	return &Resolver{Password: password, Getenv: os.Getenv}
}

// Resolve loads the credentials named by ref.
func (r *Resolver) Resolve(ref string) (Credentials, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Credentials{}, nil
	}

	scheme, rest, ok := strings.Cut(ref, ":")
	if !ok || rest == "" {
		return Credentials{}, fmt.Errorf("crypto: malformed credentials ref (want env:NAME or file:PATH)")
	}

	switch scheme {
	case "env":
		getenv := r.Getenv
		if getenv == nil {
			getenv = os.Getenv
		}
		prefix := strings.ToUpper(rest)
		creds := Credentials{
			APIKey:    getenv(prefix + "_API_KEY"),
			APISecret: getenv(prefix + "_API_SECRET"),
		}
		if creds.APIKey == "" {
			return Credentials{}, fmt.Errorf("crypto: %s_API_KEY is not set", prefix)
		}
		return creds, nil

	case "file":
		data, err := os.ReadFile(rest)
		if err != nil {
			return Credentials{}, fmt.Errorf("crypto: reading credentials file: %w", err)
		}
		plain, err := Open(data, r.Password)
		if err != nil {
			return Credentials{}, err
		}
		var creds Credentials
		if err := json.Unmarshal(plain, &creds); err != nil {
			return Credentials{}, fmt.Errorf("crypto: parsing decrypted credentials: %w", err)
		}
		return creds, nil

	default:
		return Credentials{}, fmt.Errorf("crypto: unsupported credentials scheme %q", scheme)
	}
}

// Seal encrypts plaintext with a password using PBKDF2-HMAC-SHA256 key
// derivation and AES-256-GCM. It returns the JSON blob suitable for writing
// to disk.
func Seal(plaintext []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	out := sealedJSON{
		Version:    currentVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, plaintext, nil)),
	}
	return json.MarshalIndent(out, "", "  ")
}

// Open decrypts a blob produced by Seal.
func Open(sealed []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}

	var stored sealedJSON
	if err := json.Unmarshal(sealed, &stored); err != nil {
		return nil, fmt.Errorf("crypto: parsing sealed JSON: %w", err)
	}
	if stored.Version != currentVersion {
		return nil, fmt.Errorf("crypto: unsupported version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: decryption failed (wrong password?): %w", err)
	}
	return plaintext, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}
	return gcm, nil
}
