package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/botscripts/internal/api"
	"github.com/and161185/botscripts/internal/errs"
	"github.com/and161185/botscripts/internal/model"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeTokens struct {
	byValue map[string]int64
	err     error
}

func (f *fakeTokens) Validate(_ context.Context, value string) (model.Token, error) {
	if f.err != nil {
		return model.Token{}, f.err
	}
	v := model.NormalizeToken(value)
	id, ok := f.byValue[v]
	if !ok {
		return model.Token{}, errs.ErrTokenNotFound
	}
	return model.Token{AccountID: id, Value: v, IssuedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}, nil
}

func (f *fakeTokens) ValidateWithIP(ctx context.Context, value, _ string) (model.Token, error) {
	return f.Validate(ctx, value)
}

type fakeScripts struct {
	data map[int64]map[string]model.Script
	err  error
}

func (f *fakeScripts) GetScripts(_ context.Context, accountID int64) (model.ScriptSet, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := model.ScriptSet{}
	for _, s := range f.data[accountID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeScripts) ApplySync(_ context.Context, accountID int64, in model.ScriptSet, mode model.SyncMode) error {
	if f.err != nil {
		return f.err
	}
	if mode == model.SyncFull || f.data[accountID] == nil {
		f.data[accountID] = map[string]model.Script{}
	}
	for _, s := range in {
		s.AccountID = accountID
		f.data[accountID][s.Name] = s
	}
	return nil
}

func (f *fakeScripts) DeleteScripts(_ context.Context, accountID int64, names []string) error {
	if f.err != nil {
		return f.err
	}
	for _, n := range names {
		delete(f.data[accountID], n)
	}
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeTokens, *fakeScripts) {
	t.Helper()
	tokens := &fakeTokens{byValue: map[string]int64{"TOK42": 42, "TOK7": 7}}
	scripts := &fakeScripts{data: map[int64]map[string]model.Script{}}
	return NewRouter(tokens, scripts, zaptest.NewLogger(t), Options{}), tokens, scripts
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokenStatus(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/scripts/tok42", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var tok api.Token
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	require.Equal(t, int64(42), tok.AccountID)
	require.Equal(t, "TOK42", tok.Token)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(r, http.MethodGet, "/scripts/unknown", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"not authenticated"}`, w.Body.String())
}

func TestTokenStatus_ExpiredAndRateLimited(t *testing.T) {
	r, tokens, _ := newTestRouter(t)

	tokens.err = errs.ErrTokenExpired
	w := do(r, http.MethodGet, "/scripts/tok42", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error":"not authenticated"}`, w.Body.String())

	tokens.err = errs.ErrRateLimited
	w = do(r, http.MethodGet, "/scripts/tok42", "", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSyncListDeleteFlow(t *testing.T) {
	r, _, scripts := newTestRouter(t)

	w := do(r, http.MethodPost, "/scripts", "tok42",
		`{"accountId":42,"scripts":[{"accountId":1,"name":"A","script":"1"},{"name":"B","script":"2","data":"x"}]}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, int64(42), scripts.data[42]["A"].AccountID)

	w = do(r, http.MethodPost, "/scripts", "tok42",
		`{"accountId":42,"isComplete":false,"scripts":[{"name":"C","script":"3"}]}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = do(r, http.MethodPost, "/scripts/delete", "tok42", `{"accountId":42,"scriptNames":["B","Z"]}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = do(r, http.MethodGet, "/scripts/42", "tok42", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []api.Script
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	require.Equal(t, "A", got[0].Name)
	require.Equal(t, "C", got[1].Name)
}

func TestList_EmptyAccountIsEmptyArray(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/scripts/7", "tok7", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())
}

func TestAuthErrors(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/scripts/42", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/scripts/42", "nope", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/scripts/42", "tok7", "")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/scripts", "tok7", `{"accountId":42,"scripts":[]}`)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/scripts/delete", "tok7", `{"accountId":42,"scriptNames":["A"]}`)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestBadBodyAndServiceErrors(t *testing.T) {
	r, _, scripts := newTestRouter(t)

	w := do(r, http.MethodPost, "/scripts", "tok42", `{not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	scripts.err = errors.Join(errs.ErrInvalidArgument, errors.New("script[0] empty name"))
	w = do(r, http.MethodPost, "/scripts", "tok42", `{"scripts":[{"name":""}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	scripts.err = errors.Join(errs.ErrStorageUnavailable, errors.New("down"))
	w = do(r, http.MethodPost, "/scripts", "tok42", `{"scripts":[]}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(r, http.MethodGet, "/scripts/42", "tok42", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTrailingSlashRedirects(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/scripts/42/", "tok42", "")
	require.Equal(t, http.StatusMovedPermanently, w.Code)
	require.Equal(t, "/scripts/42", w.Header().Get("Location"))
}

func TestHealthAndMetrics(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	_ = do(r, http.MethodGet, "/scripts/42", "tok42", "")
	w = do(r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "botscripts_request_duration_seconds")
}

func TestRequestID_Reused(t *testing.T) {
	r, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "abc", w.Header().Get("X-Request-ID"))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zaptest.NewLogger(t)))
	r.GET("/boom", func(*gin.Context) { panic("oh no") })

	w := do(r, http.MethodGet, "/boom", "", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"internal"}`, w.Body.String())
}

func Test_parseAccountID(t *testing.T) {
	for in, want := range map[string]bool{"42": true, "0042": true, "": false, "4a": false, "-1": false, "ABC": false} {
		_, ok := parseAccountID(in)
		require.Equal(t, want, ok, in)
	}
}

func Test_bearerToken(t *testing.T) {
	tok, ok := bearerToken("  bearer  abc ")
	require.True(t, ok)
	require.Equal(t, "abc", tok)

	_, ok = bearerToken("Basic abc")
	require.False(t, ok)
	_, ok = bearerToken("Bearer   ")
	require.False(t, ok)
}
