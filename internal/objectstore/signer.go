package objectstore

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Signed-URL verification failures. The download handler maps these to 403.
var (
	ErrBadSignature = errors.New("signature mismatch")
	ErrExpiredURL   = errors.New("url expired")
)

// URLSigner mints and verifies HMAC-signed download URLs of the form
//
//	<baseURL>/<key>?expires=<unix>&sig=<hex hmac-sha256>
//
// The signature covers the object key and the expiry timestamp, so neither
// can be altered without invalidating the URL.
type URLSigner struct {
	baseURL string
	secret  []byte
	now     func() time.Time
}

// NewURLSigner creates a signer that prefixes URLs with baseURL (trailing
// slash optional) and signs with secret.
func NewURLSigner(baseURL string, secret []byte) *URLSigner {
	return &URLSigner{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		now:     time.Now,
	}
}

// Sign returns a signed URL for key that is valid for ttl.
func (s *URLSigner) Sign(key string, ttl time.Duration) string {
	expires := s.now().Add(ttl).Unix()
	q := url.Values{
		"expires": []string{strconv.FormatInt(expires, 10)},
		"sig":     []string{s.signature(key, expires)},
	}
	return fmt.Sprintf("%s/%s?%s", s.baseURL, key, q.Encode())
}

// Verify checks the signature and expiry for a download request. key is
// the object key from the request path, expires and sig the query values.
func (s *URLSigner) Verify(key, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return fmt.Errorf("url signer: parse expiry: %w", ErrBadSignature)
	}
	want := s.signature(key, exp)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return fmt.Errorf("url signer: %w", ErrBadSignature)
	}
	if s.now().Unix() > exp {
		return fmt.Errorf("url signer: %w", ErrExpiredURL)
	}
	return nil
}

func (s *URLSigner) signature(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
