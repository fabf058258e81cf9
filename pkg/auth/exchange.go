package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/techmatters/terraso-go/pkg/config"
	"github.com/techmatters/terraso-go/pkg/logging"
)

// Exchange error types. They are also the keys of the error response body.
const (
	ErrTypeBadConfig = "bad_config"
	ErrTypeJWKS      = "jwks_error"
	ErrTypeToken     = "token_error"
)

// ExchangeError is returned when a provider token cannot be exchanged.
type ExchangeError struct {
	Type    string
	Message string
	Err     error
}

func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error type to an HTTP status.
func (e *ExchangeError) StatusCode() int {
	if e.Type == ErrTypeToken {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Provider is a sign in provider whose id tokens can be exchanged.
type Provider struct {
	Name     string
	JWKSURL  string
	ClientID string
}

// ProviderRegistry holds the configured exchange providers.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[string]Provider)}
}

// RegistryFromConfig registers every configured provider.
func RegistryFromConfig(cfg map[string]config.ExchangeProvider) *ProviderRegistry {
	r := NewProviderRegistry()
	for name, p := range cfg {
		r.Register(Provider{Name: name, JWKSURL: p.URL, ClientID: p.ClientID})
	}
	return r
}

func (r *ProviderRegistry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name] = p
}

func (r *ProviderRegistry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names in order.
func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExchangeClaims are the identity claims read from a verified provider token.
type ExchangeClaims struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

type signingKey struct {
	alg string
	key interface{}
}

// jwksCache caches the keys of one JWKS document.
type jwksCache struct {
	mu        sync.RWMutex
	keys      map[string]signingKey
	expiresAt time.Time
}

// Exchanger verifies provider id tokens against the provider's JWKS.
type Exchanger struct {
	registry *ProviderRegistry
	client   *http.Client
	ttl      time.Duration

	mu     sync.Mutex
	caches map[string]*jwksCache
}

func NewExchanger(registry *ProviderRegistry, client *http.Client) *Exchanger {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Exchanger{
		registry: registry,
		client:   client,
		ttl:      5 * time.Minute,
		caches:   make(map[string]*jwksCache),
	}
}

// HasProvider reports whether name is configured.
func (e *Exchanger) HasProvider(name string) bool {
	_, ok := e.registry.Get(name)
	return ok
}

// Validate verifies token as an id token issued by the named provider for its
// client id.
func (e *Exchanger) Validate(ctx context.Context, providerName, token string) (*ExchangeClaims, error) {
	log := logging.Component("auth")
	p, ok := e.registry.Get(providerName)
	if !ok || p.JWKSURL == "" || p.ClientID == "" {
		return nil, &ExchangeError{Type: ErrTypeBadConfig, Message: fmt.Sprintf("provider %s is missing config variables", providerName)}
	}

	key, err := e.signingKeyFor(ctx, p, token)
	if err != nil {
		log.Error().Err(err).Str("provider", providerName).Msg("could not retrieve signing key")
		return nil, &ExchangeError{Type: ErrTypeJWKS, Message: fmt.Sprintf("could not retrieve signing key for %s", providerName), Err: err}
	}
	if key.alg == "" {
		return nil, &ExchangeError{Type: ErrTypeToken, Message: "alg header missing in mobile JWT token"}
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return key.key, nil
	}, jwt.WithValidMethods([]string{key.alg}), jwt.WithAudience(p.ClientID))
	if err != nil {
		log.Warn().Err(err).Str("provider", providerName).Msg("token was not verified")
		return nil, &ExchangeError{Type: ErrTypeToken, Message: "token was not verified", Err: err}
	}

	out := &ExchangeClaims{}
	out.Email, _ = claims["email"].(string)
	out.GivenName, _ = claims["given_name"].(string)
	out.FamilyName, _ = claims["family_name"].(string)
	out.Picture, _ = claims["picture"].(string)
	return out, nil
}

func (e *Exchanger) cache(url string) *jwksCache {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.caches[url]
	if !ok {
		c = &jwksCache{keys: make(map[string]signingKey)}
		e.caches[url] = c
	}
	return c
}

// signingKeyFor looks up the key named by the token's kid header, refreshing
// the JWKS when it is stale or does not know the kid.
func (e *Exchanger) signingKeyFor(ctx context.Context, p Provider, token string) (signingKey, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return signingKey{}, err
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return signingKey{}, errors.New("missing kid in token header")
	}

	c := e.cache(p.JWKSURL)
	c.mu.RLock()
	key, ok := c.keys[kid]
	fresh := time.Now().Before(c.expiresAt)
	c.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := e.refresh(ctx, p.JWKSURL, c); err != nil {
		return signingKey{}, err
	}
	c.mu.RLock()
	key, ok = c.keys[kid]
	c.mu.RUnlock()
	if !ok {
		return signingKey{}, fmt.Errorf("key %s not found", kid)
	}
	return key, nil
}

func (e *Exchanger) refresh(ctx context.Context, url string, c *jwksCache) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch JWKS: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read JWKS: %w", err)
	}
	keys, err := parseJWKS(body)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.keys = keys
	c.expiresAt = time.Now().Add(e.ttl)
	c.mu.Unlock()
	return nil
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// parseJWKS reads the RSA and EC keys of a JWKS document. Keys of other types
// or with malformed parameters are skipped.
func parseJWKS(body []byte) (map[string]signingKey, error) {
	var doc struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}

	keys := make(map[string]signingKey)
	for _, raw := range doc.Keys {
		var k jwk
		if err := json.Unmarshal(raw, &k); err != nil {
			continue
		}
		switch k.Kty {
		case "RSA":
			pub, err := parseRSAPublicKey(k.N, k.E)
			if err != nil {
				continue
			}
			keys[k.Kid] = signingKey{alg: k.Alg, key: pub}
		case "EC":
			pub, err := parseECPublicKey(k.Crv, k.X, k.Y)
			if err != nil {
				continue
			}
			keys[k.Kid] = signingKey{alg: k.Alg, key: pub}
		}
	}
	return keys, nil
}

func parseRSAPublicKey(nBase64, eBase64 string) (*rsa.PublicKey, error) {
	nBytes, err := jwt.NewParser().DecodeSegment(nBase64)
	if err != nil {
		return nil, err
	}
	eBytes, err := jwt.NewParser().DecodeSegment(eBase64)
	if err != nil {
		return nil, err
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}

func parseECPublicKey(crv, xBase64, yBase64 string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported curve %q", crv)
	}
	x, err := jwt.NewParser().DecodeSegment(xBase64)
	if err != nil {
		return nil, err
	}
	y, err := jwt.NewParser().DecodeSegment(yBase64)
	if err != nil {
		return nil, err
	}
	return &ecdsa.PublicKey{Curve: curve, X: new(big.Int).SetBytes(x), Y: new(big.Int).SetBytes(y)}, nil
}
