// Package files stores uploaded images as blobs and hands out time-limited
// signed URLs for them.
package files

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wondermap/wondermap-api/internal/travel"
)

// URLValidity is how long a signed URL stays usable.
const URLValidity = 7 * 24 * time.Hour

// ErrBadSignature is returned for tampered, malformed or expired links.
var ErrBadSignature = fmt.Errorf("invalid or expired file signature: %w", travel.ErrForbidden)

// Signer produces and checks HMAC-SHA256 signatures over a blob key and its
// expiry.
type Signer struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

// NewSigner returns a Signer. baseURL is the public origin of the API, for
// example "https://api.example.com"; it may be empty for relative links.
func NewSigner(secret, baseURL string) *Signer {
	return &Signer{secret: []byte(secret), baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

// WithClock replaces the wall clock (for tests).
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

func (s *Signer) mac(key string, expires int64) []byte {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(key))
	m.Write([]byte{'\n'})
	m.Write([]byte(strconv.FormatInt(expires, 10)))
	return m.Sum(nil)
}

// Sign returns the lowercase hex signature for key valid until expires.
func (s *Signer) Sign(key string, expires time.Time) string {
	return hex.EncodeToString(s.mac(key, expires.Unix()))
}

// Verify checks a signature against key and the raw expires parameter.
func (s *Signer) Verify(key, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if s.now().Unix() > exp {
		return ErrBadSignature
	}
	provided, err := hex.DecodeString(sig)
	if err != nil {
		return ErrBadSignature
	}
	if !hmac.Equal(s.mac(key, exp), provided) {
		return ErrBadSignature
	}
	return nil
}

// URL returns a signed download link for key valid for URLValidity.
func (s *Signer) URL(key string) string {
	expires := s.now().Add(URLValidity)

	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires.Unix(), 10))
	q.Set("sig", s.Sign(key, expires))

	return s.baseURL + "/files/" + strings.Join(segments, "/") + "?" + q.Encode()
}
