package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/and161185/botscripts/internal/api"
	"github.com/and161185/botscripts/internal/convert"
	"github.com/and161185/botscripts/internal/errs"
	"github.com/and161185/botscripts/internal/model"
	"github.com/and161185/botscripts/internal/service"
)

// Handler serves the /scripts routes.
type Handler struct {
	tokens  service.TokenService
	scripts service.ScriptService
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Get serves both GET /scripts/{accountId} and GET /scripts/{token}: an
// all-digit parameter is an account id, anything else is a token.
func (h *Handler) Get(c *gin.Context) {
	param := c.Param("param")
	if id, ok := parseAccountID(param); ok {
		h.list(c, id)
		return
	}
	tok, err := h.tokens.ValidateWithIP(c.Request.Context(), param, c.ClientIP())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToAPIToken(tok))
}

func (h *Handler) list(c *gin.Context, accountID int64) {
	if !h.authorize(c, accountID) {
		return
	}
	set, err := h.scripts.GetScripts(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToAPIScripts(set))
}

// Sync handles POST /scripts. A body without accountId targets the token's account.
func (h *Handler) Sync(c *gin.Context) {
	var req api.SyncScriptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Error{Error: "invalid request body"})
		return
	}
	accountID, ok := h.authenticate(c)
	if !ok {
		return
	}
	if req.AccountID != 0 && req.AccountID != accountID {
		c.AbortWithStatusJSON(http.StatusForbidden, api.Error{Error: "account mismatch"})
		return
	}
	mode := model.SyncModeFromComplete(req.Complete())
	if err := h.scripts.ApplySync(c.Request.Context(), accountID, convert.FromAPIScripts(req.Scripts), mode); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// Delete handles POST /scripts/delete.
func (h *Handler) Delete(c *gin.Context) {
	var req api.DeleteScriptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.Error{Error: "invalid request body"})
		return
	}
	accountID, ok := h.authenticate(c)
	if !ok {
		return
	}
	if req.AccountID != 0 && req.AccountID != accountID {
		c.AbortWithStatusJSON(http.StatusForbidden, api.Error{Error: "account mismatch"})
		return
	}
	if err := h.scripts.DeleteScripts(c.Request.Context(), accountID, req.ScriptNames); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// authorize authenticates the caller and requires the token to belong to accountID.
func (h *Handler) authorize(c *gin.Context, accountID int64) bool {
	got, ok := h.authenticate(c)
	if !ok {
		return false
	}
	if got != accountID {
		c.AbortWithStatusJSON(http.StatusForbidden, api.Error{Error: "account mismatch"})
		return false
	}
	return true
}

// authenticate validates the bearer token and records the account on the context.
// On failure the response is already written.
func (h *Handler) authenticate(c *gin.Context) (int64, bool) {
	raw, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, api.Error{Error: "not authenticated"})
		return 0, false
	}
	tok, err := h.tokens.ValidateWithIP(c.Request.Context(), raw, c.ClientIP())
	if err != nil {
		writeError(c, err)
		return 0, false
	}
	c.Set(accountIDKey, tok.AccountID)
	return tok.AccountID, true
}

func bearerToken(header string) (string, bool) {
	v := strings.TrimSpace(header)
	if len(v) < 7 || !strings.EqualFold(v[:7], "bearer ") {
		return "", false
	}
	t := strings.TrimSpace(v[7:])
	return t, t != ""
}

func parseAccountID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrRateLimited):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, api.Error{Error: "rate limited"})
	case errors.Is(err, errs.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, api.Error{Error: "not authenticated"})
	case errors.Is(err, errs.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, api.Error{Error: err.Error()})
	case errors.Is(err, errs.ErrStorageUnavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, api.Error{Error: "storage unavailable"})
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, api.Error{Error: "internal"})
	}
}
