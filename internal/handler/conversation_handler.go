package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"backoffice-chat/internal/services"
	"backoffice-chat/internal/transport/httpdto"
)

type ConversationHandler struct {
	service *services.ChatService
}

func NewConversationHandler(service *services.ChatService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

func (h *ConversationHandler) Create(c *gin.Context) {
	a, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req httpdto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	customerID := uuid.Nil
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid customer id", "INVALID_REQUEST"))
			return
		}
		customerID = id
	}

	staffIDs := make([]uuid.UUID, 0, len(req.AdditionalStaffIDs))
	for _, idStr := range req.AdditionalStaffIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid staff id", "INVALID_REQUEST"))
			return
		}
		staffIDs = append(staffIDs, id)
	}

	conv, err := h.service.CreateConversation(c.Request.Context(), a, services.CreateConversationInput{
		Type:               req.Type,
		CustomerID:         customerID,
		Title:              req.Title,
		AdditionalStaffIDs: staffIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversation(conv)))
}

func (h *ConversationHandler) List(c *gin.Context) {
	a, ok := actorOrAbort(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, total, err := h.service.ListConversations(c.Request.Context(), a, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListConversationsResponse{
		Conversations: httpdto.FromConversationSlice(items),
		Total:         total,
	}))
}

func (h *ConversationHandler) GetByID(c *gin.Context) {
	a, ok := actorOrAbort(c)
	if !ok {
		return
	}
	conversationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	conv, err := h.service.GetConversation(c.Request.Context(), a, conversationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversation(conv)))
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	a, ok := actorOrAbort(c)
	if !ok {
		return
	}
	conversationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteConversation(c.Request.Context(), a, conversationID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	a, ok := actorOrAbort(c)
	if !ok {
		return
	}
	conversationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req httpdto.AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	staffID, err := uuid.Parse(req.StaffID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid staff id", "INVALID_REQUEST"))
		return
	}

	p, err := h.service.AddParticipant(c.Request.Context(), a, conversationID, staffID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromParticipant(p)))
}

func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	a, ok := actorOrAbort(c)
	if !ok {
		return
	}
	conversationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	staffID, ok := parseIDParam(c, "staffId")
	if !ok {
		return
	}

	if err := h.service.RemoveParticipant(c.Request.Context(), a, conversationID, staffID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"removed": true}))
}
