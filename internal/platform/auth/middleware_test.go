package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func runJWT(t *testing.T, header string, next echo.HandlerFunc) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Issuer: "ward"})(next)(c)
	return c, err
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func okHandler(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, err := runJWT(t, "", okHandler)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	for _, header := range []string{"Token abc123", "Bearer", "Bearer ", "Basic dXNlcjpwYXNz"} {
		t.Run(header, func(t *testing.T) {
			_, err := runJWT(t, header, okHandler)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "6f1c1b52-6a1d-4bd4-9f0e-5a3c0f1d2e3a",
			Issuer:    "ward",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TenantID: "ward_a",
		Roles:    []string{"nurse"},
	}
	token := createTestToken(t, claims, testSigningKey)

	var gotUser string
	var gotRoles []string
	c, err := runJWT(t, "Bearer "+token, func(c echo.Context) error {
		gotUser = UserIDFromContext(c.Request().Context())
		gotRoles = RolesFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUser != claims.Subject {
		t.Errorf("expected subject %s, got %s", claims.Subject, gotUser)
	}
	if len(gotRoles) != 1 || gotRoles[0] != "nurse" {
		t.Errorf("expected [nurse], got %v", gotRoles)
	}
	if tid, _ := c.Get("jwt_tenant_id").(string); tid != "ward_a" {
		t.Errorf("expected jwt_tenant_id ward_a, got %q", tid)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	token := createTestToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "ward"}}, []byte("other-key"))
	_, err := runJWT(t, "Bearer "+token, okHandler)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_WrongIssuer(t *testing.T) {
	token := createTestToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "elsewhere"}}, testSigningKey)
	_, err := runJWT(t, "Bearer "+token, okHandler)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_Expired(t *testing.T) {
	token := createTestToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "ward",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}, testSigningKey)
	_, err := runJWT(t, "Bearer "+token, okHandler)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	err := DevAuthMiddleware()(func(c echo.Context) error {
		if UserIDFromContext(c.Request().Context()) != DevUserID {
			t.Error("expected dev user id")
		}
		if !HasAnyRole(RolesFromContext(c.Request().Context()), "nurse") {
			t.Error("expected nurse role")
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
