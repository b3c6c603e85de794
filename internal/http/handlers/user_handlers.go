package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commercekit/authsvc/domain"
)

// UserHandlers exposes admin operations on user accounts.
type UserHandlers struct {
	authSvc  domain.AuthService
	userRepo domain.UserRepository
	logger   *zap.Logger
}

// NewUserHandlers creates new user handlers.
func NewUserHandlers(authSvc domain.AuthService, userRepo domain.UserRepository, logger *zap.Logger) *UserHandlers {
	return &UserHandlers{authSvc: authSvc, userRepo: userRepo, logger: logger}
}

// Get returns a user's sanitized profile by ID.
func (h *UserHandlers) Get(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetByID(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

// Delete soft-deletes a user account. The row survives for audit; the
// account disappears from every lookup.
func (h *UserHandlers) Delete(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.authSvc.SoftDelete(c.Request.Context(), userID, actorID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "User deleted"}})
}

// Audit returns a user's security trail, newest first.
func (h *UserHandlers) Audit(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}

	entries, err := h.userRepo.ListAuditEntries(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("listing audit entries failed", zap.String("user_id", userID.String()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func pathUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return uuid.Nil, false
	}
	return userID, true
}
