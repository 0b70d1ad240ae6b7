package security

import (
	"fmt"
	"strings"
	"time"

	"BelongingsHub/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	KindUser       = "User"
	KindTechnician = "Technician"
)

// Options 控制签名与TTL等参数。
type Options struct {
	Secret []byte        // HMAC 密钥（生产用ENV/KMS）
	Alg    string        // HS256/HS384/HS512（默认 HS256）
	TTL    time.Duration // 令牌有效期（默认 2h）
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 2 * time.Hour}
}

// Identity 令牌解出的调用方身份
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Kind   string `json:"kind"` // User / Technician
}

// Claims 与认证服务签发的令牌字段保持一致
type Claims struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	Kind   string `json:"kind,omitempty"`
	jwtlib.RegisteredClaims
}

// Generate 签发令牌；线上由认证服务签发，这里供测试和运维工具使用
func Generate(opts Options, id Identity) (token string, expireAt time.Time, err error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	now := time.Now()
	exp := now.Add(opts.TTL)

	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Kind:   id.Kind,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(exp),
		},
	}
	signed, err := jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verifier 校验 HMAC 令牌
type Verifier struct {
	opts   Options
	parser *jwtlib.Parser
}

func NewVerifier(opts Options) (*Verifier, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return nil, err
	}
	if len(opts.Secret) == 0 {
		return nil, errs.New("jwt secret is empty")
	}
	return &Verifier{
		opts:   opts,
		parser: jwtlib.NewParser(jwtlib.WithValidMethods([]string{method.Alg()}), jwtlib.WithExpirationRequired()),
	}, nil
}

// VerifyToken 失败统一返回 ErrTokenInvalid（detail 带原因）
func (v *Verifier) VerifyToken(token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errs.ErrTokenMissing.Wrap()
	}
	var claims Claims
	parsed, err := v.parser.ParseWithClaims(token, &claims, func(t *jwtlib.Token) (interface{}, error) {
		return v.opts.Secret, nil
	})
	if err != nil {
		return nil, errs.ErrTokenInvalid.WrapMsg(err.Error())
	}
	if !parsed.Valid {
		return nil, errs.ErrTokenInvalid.Wrap()
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, errs.ErrTokenInvalid.WrapMsg("no user id in claims")
	}
	kind := claims.Kind
	if kind == "" {
		kind = KindUser
	}
	return &Identity{UserID: userID, Email: claims.Email, Kind: kind}, nil
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
