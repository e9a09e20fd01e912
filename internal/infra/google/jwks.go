// Package google verifies Google Sign-In ID tokens against the issuer's published keys.
package google

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/ankitjc/prompt-polish/internal/domain"
	"github.com/ankitjc/prompt-polish/internal/session"
)

// DefaultIssuer is the issuer of Google ID tokens.
const DefaultIssuer = "https://accounts.google.com"

var (
	ErrInvalidToken  = errors.New("google: invalid id token")
	ErrUnknownKey    = errors.New("google: unknown signing key")
	ErrTokenRejected = errors.New("google: id token rejected")
)

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Verifier checks RS256 ID tokens issued for one OAuth client. Keys are cached for
// an hour and refetched when an unknown kid shows up.
type Verifier struct {
	issuer     string
	clientID   string
	mu         sync.RWMutex
	cache      map[string]*rsa.PublicKey
	fetched    time.Time
	httpClient *http.Client
	now        func() time.Time
}

func NewVerifier(issuer, clientID string) *Verifier {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Verifier{
		issuer:     strings.TrimRight(issuer, "/"),
		clientID:   clientID,
		cache:      make(map[string]*rsa.PublicKey),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// VerifyIDToken checks signature, issuer, audience and expiry. Tokens without
// exp are rejected.
func (v *Verifier) VerifyIDToken(ctx context.Context, token string) (*session.IDTokenClaims, error) {
	claims := &session.IDTokenClaims{}
	var keyErr error
	keyfunc := func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodRS256 {
			keyErr = fmt.Errorf("%w: unsupported alg %q", ErrTokenRejected, t.Method.Alg())
			return nil, keyErr
		}
		kid, _ := t.Header["kid"].(string)
		key, err := v.key(ctx, kid)
		if err != nil {
			keyErr = err
			return nil, err
		}
		return key, nil
	}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(strings.TrimSpace(token), claims, keyfunc); err != nil {
		var ve *jwt.ValidationError
		switch {
		case keyErr != nil:
			return nil, keyErr
		case errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorMalformed != 0:
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrTokenRejected, err)
		}
	}

	now := v.now()
	if !claims.VerifyIssuer(v.issuer, true) && !claims.VerifyIssuer(strings.TrimPrefix(v.issuer, "https://"), true) {
		return nil, fmt.Errorf("%w: issuer %q", ErrTokenRejected, claims.Issuer)
	}
	if !claims.VerifyAudience(v.clientID, true) {
		return nil, fmt.Errorf("%w: audience", ErrTokenRejected)
	}
	if !claims.VerifyExpiresAt(now, true) {
		return nil, fmt.Errorf("%w: expired or missing exp", ErrTokenRejected)
	}
	if !claims.VerifyNotBefore(now, false) {
		return nil, fmt.Errorf("%w: not yet valid", ErrTokenRejected)
	}
	return claims, nil
}

// VerifyIdentity verifies token and extracts the identity it names.
func (v *Verifier) VerifyIdentity(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := v.VerifyIDToken(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}
	id := claims.Identity()
	if err := id.Validate(); err != nil {
		return domain.Identity{}, err
	}
	return id, nil
}

// key returns the cached key for kid, refetching the set once on a miss.
func (v *Verifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if err := v.ensureKeys(ctx); err != nil {
		return nil, err
	}
	if key, ok := v.keyFor(kid); ok {
		return key, nil
	}
	if err := v.refresh(ctx); err != nil {
		return nil, err
	}
	if key, ok := v.keyFor(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrUnknownKey, kid)
}

func (v *Verifier) ensureKeys(ctx context.Context) error {
	v.mu.RLock()
	fresh := v.now().Sub(v.fetched) < time.Hour && len(v.cache) > 0
	v.mu.RUnlock()
	if fresh {
		return nil
	}
	return v.refresh(ctx)
}

func (v *Verifier) refresh(ctx context.Context) error {
	cfg, err := v.fetchConfig(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.JWKSURI, nil)
	if err != nil {
		return err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google: fetch jwks: status %d", resp.StatusCode)
	}
	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return err
	}
	keys := make(map[string]*rsa.PublicKey)
	for _, key := range set.Keys {
		if key.Kty != "RSA" {
			continue
		}
		pub, err := rsaKeyFromJWK(key)
		if err != nil {
			continue
		}
		keys[key.Kid] = pub
	}
	if len(keys) == 0 {
		return errors.New("google: no rsa keys in jwks")
	}
	v.mu.Lock()
	v.cache = keys
	v.fetched = v.now()
	v.mu.Unlock()
	return nil
}

type openIDConfig struct {
	JWKSURI string `json:"jwks_uri"`
}

func (v *Verifier) fetchConfig(ctx context.Context) (*openIDConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.issuer+"/.well-known/openid-configuration", nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google: fetch openid configuration: status %d", resp.StatusCode)
	}
	var cfg openIDConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.JWKSURI == "" {
		return nil, errors.New("google: openid configuration without jwks_uri")
	}
	return &cfg, nil
}

func (v *Verifier) keyFor(kid string) (*rsa.PublicKey, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	pk, ok := v.cache[kid]
	return pk, ok
}

func rsaKeyFromJWK(j jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, errors.New("google: invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
