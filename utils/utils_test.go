package utils

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheck(t *testing.T) {
	h, err := HashPassword("secret1", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", h)
	assert.True(t, CheckPasswordHash("secret1", h))
	assert.False(t, CheckPasswordHash("secret2", h))
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("k", time.Hour)
	tok, err := tm.Generate("user-1")
	require.NoError(t, err)

	id, err := tm.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("k", time.Hour)
	tok, _ := tm.Generate("user-1")

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenManager("other", time.Hour).Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.Verify("this-is-not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewTokenManager("k", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		stale, err := old.Generate("user-1")
		require.NoError(t, err)
		_, err = tm.Verify(stale)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none alg", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": "user-1"})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = tm.Verify(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing id", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
		s, _ := raw.SignedString([]byte("k"))
		_, err := tm.Verify(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPasswordVault(t *testing.T) {
	v, err := NewPasswordVault("jwt-secret")
	require.NoError(t, err)

	enc, err := v.Encrypt("hunter22")
	require.NoError(t, err)
	assert.Contains(t, enc, ":")
	assert.NotContains(t, enc, "hunter22")

	plain, err := v.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "hunter22", plain)

	// 同一密碼每次加密結果不同（nonce 隨機）
	enc2, _ := v.Encrypt("hunter22")
	assert.NotEqual(t, enc, enc2)

	other, _ := NewPasswordVault("rotated")
	_, err = other.Decrypt(enc)
	assert.Error(t, err)

	for _, bad := range []string{"", "nocolon", "zz:zz", "00:00"} {
		_, err := v.Decrypt(bad)
		assert.Error(t, err, bad)
	}
}

func TestTempPassword(t *testing.T) {
	re := regexp.MustCompile(`^BMSCE@[A-Z2-9]{6}[0-9]{2}$`)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		p, err := TempPassword("BMSCE@")
		require.NoError(t, err)
		assert.Regexp(t, re, p)
		seen[p] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestAppErrorStatus(t *testing.T) {
	cases := map[*AppError]int{
		Validation("v"):    http.StatusBadRequest,
		Conflict("c"):      http.StatusBadRequest,
		Unauthorized("u"):  http.StatusUnauthorized,
		Forbidden("f"):     http.StatusForbidden,
		NotFound("n"):      http.StatusNotFound,
		Unavailable("s"):   http.StatusServiceUnavailable,
		Internal("i", nil): http.StatusInternalServerError,
	}
	for e, want := range cases {
		assert.Equal(t, want, e.Kind.Status(), e.Message)
	}
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
}

func TestFailAndOKEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) { OK(c, 201, "made", gin.H{"x": 1}) })
	r.GET("/fail", func(c *gin.Context) { Fail(c, Forbidden("nope")) })
	r.GET("/boom", func(c *gin.Context) { Fail(c, assert.AnError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, 201, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"made","x":1}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, 403, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"nope"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, 500, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Server error"}`, w.Body.String())
}

type signupForm struct {
	Name     string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,emailaddr"`
	Password string `json:"password" validate:"required,min=6"`
}

func TestValidate_RuleOrder(t *testing.T) {
	rules := []Rule{
		{Tag: "required", Message: "All fields are required"},
		{Tag: "min", Message: "Password must be at least 6 characters"},
		{Tag: "emailaddr", Message: "Please provide a valid email address"},
	}

	err := Validate(signupForm{Email: "a@b.co", Password: "123456"}, rules...)
	assert.EqualError(t, err, "All fields are required")

	// 密碼太短 + email 錯：先回密碼
	err = Validate(signupForm{Name: "A", Email: "bad", Password: "123"}, rules...)
	assert.EqualError(t, err, "Password must be at least 6 characters")

	err = Validate(signupForm{Name: "A", Email: "bad", Password: "123456"}, rules...)
	assert.EqualError(t, err, "Please provide a valid email address")
	assert.Equal(t, KindValidation, KindOf(err))

	assert.NoError(t, Validate(signupForm{Name: "A", Email: "a@b.co", Password: "123456"}, rules...))

	err = Validate(signupForm{Name: "A", Email: "bad", Password: "123456"})
	assert.Contains(t, err.Error(), "'email'")
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("x@y.in"))
	assert.False(t, ValidEmail("x@y"))
	assert.False(t, ValidEmail("x y@z.in"))
}

func TestExtractToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for header, ok := range map[string]bool{
		"":           false,
		"abc":        false,
		"Bearer ":    false,
		"Bearer abc": true,
		"bearer abc": false,
		"Token abc":  false,
	} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		tok, err := ExtractToken(c)
		if ok {
			assert.NoError(t, err, header)
			assert.Equal(t, "abc", strings.TrimSpace(tok))
		} else {
			assert.ErrorIs(t, err, ErrNoToken, header)
		}
	}
}
