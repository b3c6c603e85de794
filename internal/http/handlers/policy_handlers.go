package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/commercekit/authsvc/domain"
)

// PolicyHandlers exposes the RBAC policy table to administrators.
type PolicyHandlers struct {
	policySvc domain.PolicyService
}

// NewPolicyHandlers creates new policy handlers.
func NewPolicyHandlers(policySvc domain.PolicyService) *PolicyHandlers {
	return &PolicyHandlers{policySvc: policySvc}
}

type policyRequest struct {
	Role     string `json:"role" binding:"required"`
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

// List returns every persisted policy rule.
func (h *PolicyHandlers) List(c *gin.Context) {
	policies, err := h.policySvc.GetPolicies()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load policies"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": policies})
}

// Add persists a new policy rule.
func (h *PolicyHandlers) Add(c *gin.Context) {
	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.policySvc.AddPolicy(req.Role, req.Resource, req.Action); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add policy"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Remove deletes a policy rule.
func (h *PolicyHandlers) Remove(c *gin.Context) {
	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.policySvc.RemovePolicy(req.Role, req.Resource, req.Action); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove policy"})
		return
	}
	c.Status(http.StatusNoContent)
}
