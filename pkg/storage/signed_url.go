package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired is returned once a token's expiry has passed.
	ErrTokenExpired = errors.New("download token expired")
)

// SignedFile is the content of a download token.
type SignedFile struct {
	ID        string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token of the form id.expiry.path.signature.
func (s *SignedURLSigner) Generate(id, relPath string) (string, time.Time, error) {
	if id == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("id and path required")
	}
	if strings.Contains(id, ".") {
		return "", time.Time{}, fmt.Errorf("id must not contain '.'")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	token := strings.Join([]string{id, ts, encodedPath, s.sign(id, ts, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded file reference.
func (s *SignedURLSigner) Parse(token string) (SignedFile, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return SignedFile{}, ErrInvalidToken
	}
	id, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(id, ts, encodedPath)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return SignedFile{}, ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return SignedFile{}, ErrInvalidToken
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return SignedFile{}, ErrInvalidToken
	}
	expiresAt := time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return SignedFile{}, ErrTokenExpired
	}
	return SignedFile{ID: id, Path: string(rawPath), ExpiresAt: expiresAt}, nil
}

func (s *SignedURLSigner) sign(id, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(id + "|" + ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
