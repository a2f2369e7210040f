package handlers

import (
	"context"
	"net/http"
	"testing"

	"romaneio-service/internal/apiclient"
	"romaneio-service/internal/models"
	"romaneio-service/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAuth acepta una sola contraseña; Me responde con la cuenta del último login
type fakeAuth struct {
	accounts map[string]int // email -> id de cuenta
	current  string
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*models.Token, error) {
	if password != "segredo" {
		return nil, &apiclient.APIError{StatusCode: http.StatusUnauthorized, Detail: "Incorrect email or password"}
	}
	f.current = email
	return &models.Token{AccessToken: "tok-" + email, TokenType: "bearer"}, nil
}

func (f *fakeAuth) Me(ctx context.Context) (*models.User, error) {
	id, ok := f.accounts[f.current]
	if !ok {
		return nil, &apiclient.APIError{StatusCode: http.StatusUnauthorized, Detail: "Could not validate credentials"}
	}
	return &models.User{ID: id, Email: "op@loja.com"}, nil
}

func newAuthEnv(t *testing.T) (*testEnv, session.TokenStore) {
	t.Helper()
	env := newTestEnv(t)
	tokens := session.NewMemoryTokenStore()
	h := NewAuthHandler(&fakeAuth{accounts: map[string]int{"op@loja.com": 7}}, tokens, zap.NewNop())

	env.router.POST("/stations/:station/auth/login", h.Login)
	env.router.POST("/stations/:station/auth/logout", h.Logout)
	return env, tokens
}

func TestLogin_StoresTokenAndAccount(t *testing.T) {
	env, tokens := newAuthEnv(t)

	w, body := env.do(t, http.MethodPost, "/stations/caixa-1/auth/login",
		gin.H{"email": "op@loja.com", "password": "segredo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)

	sess, err := tokens.Get(context.Background(), "caixa-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-op@loja.com", sess.Token)
	assert.Equal(t, 7, sess.AccountID)

	w, _ = env.do(t, http.MethodPost, "/stations/caixa-1/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, err = tokens.Get(context.Background(), "caixa-1")
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogin_WrongPassword(t *testing.T) {
	env, tokens := newAuthEnv(t)

	w, body := env.do(t, http.MethodPost, "/stations/caixa-1/auth/login",
		gin.H{"email": "op@loja.com", "password": "errada"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "login_required", body.Error)

	_, err := tokens.Get(context.Background(), "caixa-1")
	assert.ErrorIs(t, err, session.ErrNoSession)
}
