package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/zooarc/menagerie/logger"
	"github.com/zooarc/menagerie/response"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

/* ========================================================================
 * Principal headers (v1)
 * ========================================================================
 * The visitor-facing gateway authenticates end users and forwards their
 * identity to this service in signed headers. The records core trusts
 * those claims only after verifying the signature here; the tenant
 * resolver then takes the verified claims as its strongest signals.
 *
 * Headers:
 *   - X-Zoo-Auth-V: version ("1")
 *   - X-Zoo-Auth-Iss: issuer (gateway name)
 *   - X-Zoo-Auth-Ts: unix timestamp (seconds)
 *   - X-Zoo-Auth-Nonce: random nonce
 *   - X-Zoo-Auth-Principal: base64url(JSON Principal)
 *   - X-Zoo-Auth-Sign: hex(HMAC-SHA256(secret, payload))
 *
 * Signature payload:
 *   v|iss|ts|nonce|principal
 * ======================================================================== */

const (
	PrincipalVersionV1 = "1"

	HeaderPrincipalVersion   = "X-Zoo-Auth-V"
	HeaderPrincipalIssuer    = "X-Zoo-Auth-Iss"
	HeaderPrincipalTimestamp = "X-Zoo-Auth-Ts"
	HeaderPrincipalNonce     = "X-Zoo-Auth-Nonce"
	HeaderPrincipalBody      = "X-Zoo-Auth-Principal"
	HeaderPrincipalSignature = "X-Zoo-Auth-Sign"
)

const (
	defaultPrincipalMaxAge    = 5 * time.Minute
	defaultPrincipalClockSkew = 30 * time.Second
	principalNonceSize        = 16
	principalLocalKey         = "menagerie_principal"
	principalSignDelimiter    = "|"
)

var (
	ErrPrincipalHeaderMissing  = errors.New("missing principal headers")
	ErrPrincipalInvalidVersion = errors.New("invalid principal version")
	ErrPrincipalIssuerDenied   = errors.New("principal issuer not allowed")
	ErrPrincipalInvalidTS      = errors.New("invalid principal timestamp")
	ErrPrincipalMissingNonce   = errors.New("missing principal nonce")
	ErrPrincipalInvalidBody    = errors.New("invalid principal body")
	ErrPrincipalInvalidSign    = errors.New("invalid principal signature")
	ErrPrincipalExpired        = errors.New("principal headers expired")
	ErrPrincipalNotYetValid    = errors.New("principal timestamp in future")
	ErrPrincipalMissingSecret  = errors.New("principal secret is required")
)

// Principal is the end-user identity forwarded by the gateway.
type Principal struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	TenantID int64  `json:"tenant_id,omitempty"`
}

// PrincipalHeaders is the parsed header set before verification.
type PrincipalHeaders struct {
	Version   string
	Issuer    string
	Timestamp int64
	Nonce     string
	Body      string
	Signature string
}

/* ========================================================================
 * Signing (gateway side; also used by tests)
 * ======================================================================== */

// PrincipalSignerConfig configures header signing.
type PrincipalSignerConfig struct {
	Secret string `yaml:"secret" mapstructure:"secret"`
	Issuer string `yaml:"issuer" mapstructure:"issuer"`

	NowFunc func() time.Time `yaml:"-" mapstructure:"-"`
}

// PrincipalSigner builds signed principal headers.
type PrincipalSigner struct {
	cfg PrincipalSignerConfig
	now func() time.Time
}

// NewPrincipalSigner creates a signer.
func NewPrincipalSigner(cfg PrincipalSignerConfig) *PrincipalSigner {
	s := &PrincipalSigner{cfg: cfg, now: time.Now}
	if cfg.NowFunc != nil {
		s.now = cfg.NowFunc
	}
	return s
}

// BuildHeaders returns the signed header set for a principal.
func (s *PrincipalSigner) BuildHeaders(p *Principal) (PrincipalHeaders, error) {
	if s.cfg.Secret == "" {
		return PrincipalHeaders{}, ErrPrincipalMissingSecret
	}
	if s.cfg.Issuer == "" {
		return PrincipalHeaders{}, ErrPrincipalIssuerDenied
	}

	body, err := EncodePrincipal(p)
	if err != nil {
		return PrincipalHeaders{}, err
	}
	nonce, err := generatePrincipalNonce()
	if err != nil {
		return PrincipalHeaders{}, err
	}

	ts := s.now().Unix()
	sign := signPrincipal(s.cfg.Secret, PrincipalVersionV1, s.cfg.Issuer, ts, nonce, body)
	return PrincipalHeaders{
		Version:   PrincipalVersionV1,
		Issuer:    s.cfg.Issuer,
		Timestamp: ts,
		Nonce:     nonce,
		Body:      body,
		Signature: sign,
	}, nil
}

// Apply writes the headers onto an outgoing request.
func (h PrincipalHeaders) Apply(set func(key, value string)) {
	set(HeaderPrincipalVersion, h.Version)
	set(HeaderPrincipalIssuer, h.Issuer)
	set(HeaderPrincipalTimestamp, strconv.FormatInt(h.Timestamp, 10))
	set(HeaderPrincipalNonce, h.Nonce)
	if h.Body != "" {
		set(HeaderPrincipalBody, h.Body)
	}
	set(HeaderPrincipalSignature, h.Signature)
}

/* ========================================================================
 * Verification
 * ======================================================================== */

// PrincipalVerifierConfig configures verification.
type PrincipalVerifierConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Secret         string        `yaml:"secret" mapstructure:"secret"`
	AllowedIssuers []string      `yaml:"allowed_issuers" mapstructure:"allowed_issuers"`
	MaxAge         time.Duration `yaml:"max_age" mapstructure:"max_age"`
	ClockSkew      time.Duration `yaml:"clock_skew" mapstructure:"clock_skew"`

	NowFunc func() time.Time `yaml:"-" mapstructure:"-"`
}

// PrincipalVerifier verifies gateway headers and exposes the principal.
type PrincipalVerifier struct {
	cfg PrincipalVerifierConfig
	log *logger.Logger
	now func() time.Time
}

// NewPrincipalVerifier creates a verifier.
func NewPrincipalVerifier(cfg PrincipalVerifierConfig, log *logger.Logger) *PrincipalVerifier {
	if cfg.MaxAge == 0 {
		cfg.MaxAge = defaultPrincipalMaxAge
	}
	if cfg.ClockSkew == 0 {
		cfg.ClockSkew = defaultPrincipalClockSkew
	}
	if log == nil {
		log = logger.NewNop()
	}
	v := &PrincipalVerifier{cfg: cfg, log: log, now: time.Now}
	if cfg.NowFunc != nil {
		v.now = cfg.NowFunc
	}
	return v
}

// Authenticate returns the verification middleware. Requests without
// principal headers pass through anonymous; the tenant resolver and the
// data gateway fail closed on their own.
func (v *PrincipalVerifier) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		if !v.cfg.Enabled {
			return c.Next()
		}
		if v.cfg.Secret == "" {
			v.log.Error("principal verifier misconfigured: missing secret")
			return response.InternalError(c, "principal verification misconfigured")
		}

		headers, err := parsePrincipalHeaders(c.Get)
		if err != nil {
			if errors.Is(err, ErrPrincipalHeaderMissing) {
				return c.Next()
			}
			v.log.Warn("principal header parse failed",
				zap.Error(err),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			return response.Unauthorized(c, err.Error())
		}

		principal, err := v.Verify(headers)
		if err != nil {
			v.log.Warn("principal verification failed",
				zap.Error(err),
				zap.String("issuer", headers.Issuer),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			return response.Unauthorized(c, err.Error())
		}

		c.Locals(principalLocalKey, principal)
		return c.Next()
	}
}

// Verify checks a parsed header set and returns the principal.
func (v *PrincipalVerifier) Verify(h PrincipalHeaders) (*Principal, error) {
	if h.Version != PrincipalVersionV1 {
		return nil, ErrPrincipalInvalidVersion
	}
	if !v.issuerAllowed(h.Issuer) {
		return nil, ErrPrincipalIssuerDenied
	}
	if h.Nonce == "" {
		return nil, ErrPrincipalMissingNonce
	}

	expected := signPrincipal(v.cfg.Secret, h.Version, h.Issuer, h.Timestamp, h.Nonce, h.Body)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(h.Signature)) != 1 {
		return nil, ErrPrincipalInvalidSign
	}

	issuedAt := time.Unix(h.Timestamp, 0)
	now := v.now()
	if v.cfg.MaxAge > 0 && now.Sub(issuedAt) > v.cfg.MaxAge {
		return nil, ErrPrincipalExpired
	}
	if issuedAt.After(now.Add(v.cfg.ClockSkew)) {
		return nil, ErrPrincipalNotYetValid
	}

	principal, err := DecodePrincipal(h.Body)
	if err != nil {
		return nil, ErrPrincipalInvalidBody
	}
	if principal == nil || principal.UserID == "" {
		return nil, ErrPrincipalInvalidBody
	}
	return principal, nil
}

// PrincipalFromCtx returns the verified principal for this request.
func PrincipalFromCtx(c fiber.Ctx) (*Principal, bool) {
	p, ok := c.Locals(principalLocalKey).(*Principal)
	return p, ok && p != nil
}

func (v *PrincipalVerifier) issuerAllowed(issuer string) bool {
	if issuer == "" {
		return false
	}
	if len(v.cfg.AllowedIssuers) == 0 {
		return true
	}
	for _, allowed := range v.cfg.AllowedIssuers {
		if issuer == allowed {
			return true
		}
	}
	return false
}

/* ========================================================================
 * Encoding helpers
 * ======================================================================== */

func parsePrincipalHeaders(get func(string, ...string) string) (PrincipalHeaders, error) {
	version := strings.TrimSpace(get(HeaderPrincipalVersion))
	issuer := strings.TrimSpace(get(HeaderPrincipalIssuer))
	stamp := strings.TrimSpace(get(HeaderPrincipalTimestamp))
	signature := strings.TrimSpace(get(HeaderPrincipalSignature))
	if version == "" && issuer == "" && stamp == "" && signature == "" {
		return PrincipalHeaders{}, ErrPrincipalHeaderMissing
	}
	if version == "" || issuer == "" || stamp == "" || signature == "" {
		return PrincipalHeaders{}, ErrPrincipalInvalidBody
	}

	timestamp, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil || timestamp <= 0 {
		return PrincipalHeaders{}, ErrPrincipalInvalidTS
	}

	return PrincipalHeaders{
		Version:   version,
		Issuer:    issuer,
		Timestamp: timestamp,
		Nonce:     strings.TrimSpace(get(HeaderPrincipalNonce)),
		Body:      strings.TrimSpace(get(HeaderPrincipalBody)),
		Signature: signature,
	}, nil
}

// EncodePrincipal encodes a principal as base64url JSON.
func EncodePrincipal(p *Principal) (string, error) {
	if p == nil {
		return "", nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodePrincipal decodes a base64url JSON principal.
func DecodePrincipal(s string) (*Principal, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	var p Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func signPrincipal(secret, version, issuer string, ts int64, nonce, body string) string {
	payload := strings.Join([]string{
		version,
		issuer,
		strconv.FormatInt(ts, 10),
		nonce,
		body,
	}, principalSignDelimiter)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func generatePrincipalNonce() (string, error) {
	buf := make([]byte, principalNonceSize)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
