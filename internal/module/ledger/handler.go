package ledger

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/restyle/server/internal/shared/response"
	"github.com/restyle/server/internal/utils/metrics"
	"github.com/restyle/server/internal/utils/middleware"
	"go.uber.org/zap"
)

// Handler exposes the credit ledger over HTTP.
type Handler struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHandler creates a new ledger handler.
func NewHandler(repo Repository, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, metrics: m, logger: logger}
}

// GetBalance returns the caller's credit balance.
//
//	@Summary	Get credit balance
//	@Tags		Credits
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string]any
//	@Router		/api/credits [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	account, err := h.repo.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// No account yet means no credits yet
			c.JSON(http.StatusOK, gin.H{"balance": 0, "role": RoleNormal})
			return
		}
		h.logger.Error("get balance failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.InternalError(c, "failed to get balance")
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": account.Balance, "role": account.Role})
}

// GrantCredits adds credits to a user account. Admin only.
//
//	@Summary	Grant credits to a user
//	@Tags		Credits
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string]any
//	@Router		/api/admin/credits [post]
func (h *Handler) GrantCredits(c *gin.Context) {
	var req struct {
		UserID uuid.UUID `json:"user_id" binding:"required"`
		Amount int64     `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.repo.Grant(c.Request.Context(), req.UserID, req.Amount); err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			response.BadRequest(c, "invalid credit amount")
			return
		}
		h.logger.Error("grant credits failed", zap.Error(err), zap.String("user_id", req.UserID.String()))
		response.InternalError(c, "failed to grant credits")
		return
	}

	h.metrics.LedgerGrantsTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"status": "credits granted"})
}
