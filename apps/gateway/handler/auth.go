package handler

import (
	"net/http"

	"go-pos/pkg/model"
	"go-pos/pkg/response"

	"github.com/gin-gonic/gin"
)

type pinLoginRequest struct {
	Pin string `json:"pin" binding:"required,min=4,max=8"`
}

type loginResponse struct {
	Token string      `json:"token"`
	Staff model.Staff `json:"staff"`
}

// PinLogin exchanges a staff PIN for a gateway session token wrapping the backend token.
func (h *Handler) PinLogin(c *gin.Context) {
	var req pinLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.d.Backend.PinLogin(c.Request.Context(), req.Pin)
	if err != nil {
		h.fail(c, err, "Invalid PIN")
		return
	}

	token, err := h.d.Tokens.GenerateToken(resp.Staff.ID.String(), resp.Staff.Name, resp.Staff.Role, resp.AccessToken)
	if err != nil {
		h.log.WithError(err).Error("signing session token")
		response.Error(c, http.StatusInternalServerError, "Failed to start session")
		return
	}
	h.log.WithField("staff", resp.Staff.Name).Info("staff logged in")
	response.Success(c, loginResponse{Token: token, Staff: resp.Staff})
}
