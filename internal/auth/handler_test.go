package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autosender/pkg/telegram"
	"autosender/pkg/telegram/login"
)

type stubClient struct {
	needPassword bool
	password     string
}

func (c *stubClient) SendCode(ctx context.Context, phone string) (string, error) {
	return "hash", nil
}

func (c *stubClient) SignIn(ctx context.Context, phone, code, hash string) error {
	if code != "12345" {
		return telegram.ErrCodeInvalid
	}
	if c.needPassword {
		return telegram.ErrPasswordNeeded
	}
	return nil
}

func (c *stubClient) Password(ctx context.Context, password string) error {
	if password != c.password {
		return telegram.ErrPasswordInvalid
	}
	return nil
}

func (c *stubClient) Disconnect(ctx context.Context) error { return nil }

type stubAccounts map[string]bool

func (a stubAccounts) AccountExists(id string) bool { return a[id] }

type recorder struct {
	phones []string
}

func (r *recorder) CompleteLogin(ctx context.Context, accountID, phone, ref string) error {
	r.phones = append(r.phones, accountID+":"+phone)
	return nil
}

func newTestRouter(t *testing.T, client *stubClient) (*gin.Engine, *recorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	opener := login.OpenerFunc(func(ctx context.Context, accountID, phone string) (login.Client, string, error) {
		return client, accountID + "/session", nil
	})
	rec := &recorder{}
	wizard := login.NewWizard(opener, rec, time.Minute, zerolog.Nop())

	r := gin.New()
	SetupRoutes(r.Group("/accounts"), r.Group("/login"), stubAccounts{"acc": true}, wizard, zerolog.Nop())
	return r, rec
}

func do(r *gin.Engine, method, path string, body any) (int, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestLoginWithPassword(t *testing.T) {
	r, rec := newTestRouter(t, &stubClient{needPassword: true, password: "secret"})

	code, body := do(r, http.MethodPost, "/accounts/acc/login", nil)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "awaiting_phone", body["step"])
	id, _ := body["login_id"].(string)
	require.NotEmpty(t, id)

	code, body = do(r, http.MethodPost, "/login/"+id+"/phone", gin.H{"phone": "12345"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, login.ErrInvalidPhone.Error(), body["error"])
	assert.Equal(t, "awaiting_phone", body["step"])

	code, body = do(r, http.MethodPost, "/login/"+id+"/phone", gin.H{"phone": "+12345678901"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "awaiting_code", body["step"])

	code, body = do(r, http.MethodPost, "/login/"+id+"/code", gin.H{"code": "00000"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, telegram.ErrCodeInvalid.Error(), body["error"])

	code, body = do(r, http.MethodPost, "/login/"+id+"/code", gin.H{"code": "12345"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "awaiting_password", body["step"])

	code, body = do(r, http.MethodGet, "/login/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "awaiting_password", body["step"])

	code, _ = do(r, http.MethodPost, "/login/"+id+"/password", gin.H{"password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(r, http.MethodPost, "/login/"+id+"/password", gin.H{"password": "secret"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "done", body["step"])
	assert.Equal(t, []string{"acc:+12345678901"}, rec.phones)

	code, _ = do(r, http.MethodGet, "/login/"+id, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLoginUnknownAccount(t *testing.T) {
	r, _ := newTestRouter(t, &stubClient{})
	code, _ := do(r, http.MethodPost, "/accounts/missing/login", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(r, http.MethodPost, "/login/unknown/code", gin.H{"code": "12345"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLoginCancel(t *testing.T) {
	r, _ := newTestRouter(t, &stubClient{})
	_, body := do(r, http.MethodPost, "/accounts/acc/login", nil)
	id := body["login_id"].(string)

	code, _ := do(r, http.MethodDelete, "/login/"+id, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(r, http.MethodPost, "/login/"+id+"/phone", gin.H{"phone": "+12345678901"})
	assert.Equal(t, http.StatusNotFound, code)
}
