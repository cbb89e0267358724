package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gradewise/gradewise/core"
)

const (
	bearer             = "Bearer "
	contextIdentityKey = "identity"
)

var (
	signingMethod = jwt.SigningMethodHS256

	errInvalidToken = errors.New("invalid token")
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
}

// Identity turns the claims into the caller handed to the handlers. Unknown roles fall back to student.
func (c Claims) Identity() core.Identity {
	role := core.RoleStudent
	for _, r := range core.AllRoles {
		if c.Role == r {
			role = r
			break
		}
	}
	return core.Identity{ID: c.Subject, Role: role, Email: c.Email}
}

// GenerateToken signs a token for id valid for ttl.
func GenerateToken(secret []byte, appName string, id core.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    appName,
			Subject:   id.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
		Role:  id.Role,
		Email: id.Email,
	}

	ss, err := jwt.NewWithClaims(signingMethod, claims).SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// ParseToken verifies the signature and expiry of tokenStr.
func ParseToken(secret []byte, tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != signingMethod {
			return nil, errInvalidToken
		}
		return secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

type authApi struct {
	cookieName string
}

func registerAuthAPI(g *echo.Group, conf *core.Config) {
	api := authApi{cookieName: conf.JWTCookieName}

	g.GET("/me", api.me, authRequired)
	g.POST("/logout", api.logout)
}

// Handlers

func (api *authApi) me(ctx echo.Context) error {
	id, _ := getContextIdentity(ctx)
	return ctx.JSON(http.StatusOK, echo.Map{"id": id.ID, "role": id.Role})
}

func (api *authApi) logout(ctx echo.Context) error {
	ctx.SetCookie(&http.Cookie{
		Name:     api.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return ctx.JSON(http.StatusOK, echo.Map{"success": true})
}
