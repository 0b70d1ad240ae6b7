package security

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"BelongingsHub/global"
	"BelongingsHub/tools/errs"
	sec "BelongingsHub/tools/security"

	"github.com/gin-gonic/gin"
)

type stubVerifier struct{}

func (stubVerifier) VerifyToken(token string) (*sec.Identity, error) {
	if token == "good" {
		return &sec.Identity{UserID: "u1", Kind: sec.KindUser}, nil
	}
	return nil, errs.ErrTokenInvalid.WrapMsg("bad signature")
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Middleware(stubVerifier{}), func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, id)
	})
	return r
}

func TestMiddlewareAcceptsBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	newEngine().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var id sec.Identity
	if err := json.Unmarshal(w.Body.Bytes(), &id); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id.UserID != "u1" {
		t.Errorf("user = %q", id.UserID)
	}
}

func TestMiddlewareRejects(t *testing.T) {
	cases := map[string]int{
		"":             errs.TokenMissingError,
		"Basic abc":    errs.TokenMissingError,
		"Bearer bad":   errs.TokenInvalidError,
		"bearer  bad ": errs.TokenInvalidError,
	}
	for header, code := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		newEngine().ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%q: status = %d", header, w.Code)
			continue
		}
		var msg global.Msg
		if err := json.Unmarshal(w.Body.Bytes(), &msg); err != nil {
			t.Errorf("%q: body %s: %v", header, w.Body, err)
			continue
		}
		if msg.Code != code || msg.Msg == "" {
			t.Errorf("%q: envelope = %+v, want code %d", header, msg, code)
		}
	}
}
