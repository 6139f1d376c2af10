package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/internship-market/internal/auth"
	"github.com/shinyyama/internship-market/internal/reqctx"
)

// TokenVerifier turns a bearer token into the uid of an employee.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

// JWTVerifier accepts tokens issued by the user service.
type JWTVerifier struct {
	parser *auth.TokenIssuer
}

func NewJWTVerifier(parser *auth.TokenIssuer) *JWTVerifier {
	return &JWTVerifier{parser: parser}
}

func (v *JWTVerifier) Verify(_ context.Context, raw string) (string, error) {
	claims, err := v.parser.Parse(raw)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", auth.ErrInvalidToken
	}
	return "user:" + claims.Subject, nil
}

// FirebaseVerifier accepts Firebase ID tokens of the configured project.
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is not set")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (string, error) {
	token, err := v.client.VerifyIDToken(ctx, raw)
	if err != nil {
		return "", errors.Join(auth.ErrInvalidToken, err)
	}
	return "firebase:" + token.UID, nil
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authz := c.Request().Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "missing bearer token"))
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		uid, err := m.verifier.Verify(c.Request().Context(), tokenStr)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorBody("invalid_token", "token is invalid or expired"))
		}
		c.Set("uid", uid)
		req := c.Request()
		c.SetRequest(req.WithContext(reqctx.WithActor(req.Context(), uid)))
		return next(c)
	}
}

// errorBody matches the handler error envelope.
func errorBody(code, message string) map[string]map[string]string {
	return map[string]map[string]string{
		"error": {"code": code, "message": message},
	}
}
