package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const memberContextKey contextKey = "member"

const (
	jwtClaimMemberID = "member_id"
	jwtClaimRole     = "role"

	RoleAdmin  = "admin"
	RoleMember = "member"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Member is the authenticated caller. Authentication itself happens upstream;
// this service only verifies the token it issued.
type Member struct {
	ID   int64
	Role string
}

type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), logger: logger}
}

func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		member, err := a.memberFromRequest(r)
		if err != nil {
			a.logger.DebugContext(r.Context(), "authentication failed", slog.Any("error", err))
			writeError(w, http.StatusUnauthorized, err.Error(), "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), memberContextKey, member)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			member, ok := MemberFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, ErrMissingToken.Error(), "unauthorized")
				return
			}
			for _, role := range roles {
				if member.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "insufficient role", "forbidden")
		})
	}
}

func (a *Authenticator) memberFromRequest(r *http.Request) (Member, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return Member{}, ErrMissingToken
	}

	token, err := jwt.Parse(strings.TrimSpace(raw), func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Member{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Member{}, ErrInvalidToken
	}
	return memberFromClaims(claims)
}

func memberFromClaims(claims jwt.MapClaims) (Member, error) {
	idClaim, ok := claims[jwtClaimMemberID]
	if !ok {
		return Member{}, fmt.Errorf("missing '%s' claim in token", jwtClaimMemberID)
	}
	idFloat, ok := idClaim.(float64)
	if !ok || idFloat != float64(int64(idFloat)) || idFloat <= 0 {
		return Member{}, fmt.Errorf("invalid '%s' claim: %v", jwtClaimMemberID, idClaim)
	}

	role, _ := claims[jwtClaimRole].(string)
	if role == "" {
		role = RoleMember
	}
	return Member{ID: int64(idFloat), Role: role}, nil
}

func MemberFromContext(ctx context.Context) (Member, bool) {
	m, ok := ctx.Value(memberContextKey).(Member)
	return m, ok
}

// NewToken signs an HS256 token for memberID. Used by tooling and tests.
func NewToken(secret string, memberID int64, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		jwtClaimMemberID: memberID,
		jwtClaimRole:     role,
		"iat":            now.Unix(),
		"exp":            now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
