package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"backoffice-chat/internal/services"
	"backoffice-chat/internal/transport/httpdto"
)

type PinHandler struct {
	service *services.PinService
}

func NewPinHandler(service *services.PinService) *PinHandler {
	return &PinHandler{service: service}
}

func (h *PinHandler) List(c *gin.Context) {
	a, ok := actorOrAbort(c)
	if !ok {
		return
	}

	conversationID := parseOptionalID(c.Query("conversation_id"))
	status := c.Query("status")
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, total, err := h.service.ListPins(c.Request.Context(), a, conversationID, status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListPinsResponse{
		Pins:  httpdto.FromPinSlice(items),
		Total: total,
	}))
}

func (h *PinHandler) Resolve(c *gin.Context) {
	a, ok := actorOrAbort(c)
	if !ok {
		return
	}
	pinID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pin, err := h.service.ResolvePin(c.Request.Context(), a, pinID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromPin(pin)))
}

func (h *PinHandler) Reopen(c *gin.Context) {
	a, ok := actorOrAbort(c)
	if !ok {
		return
	}
	pinID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	pin, err := h.service.ReopenPin(c.Request.Context(), a, pinID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromPin(pin)))
}

func (h *PinHandler) AddLink(c *gin.Context) {
	a, ok := actorOrAbort(c)
	if !ok {
		return
	}
	pinID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req httpdto.AddPinLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	documentID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid document id", "INVALID_REQUEST"))
		return
	}

	link, err := h.service.AddPinLink(c.Request.Context(), a, pinID, req.LinkType, documentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromPinLink(link)))
}

func (h *PinHandler) RemoveLink(c *gin.Context) {
	a, ok := actorOrAbort(c)
	if !ok {
		return
	}
	linkID, ok := parseIDParam(c, "linkId")
	if !ok {
		return
	}

	if err := h.service.RemovePinLink(c.Request.Context(), a, linkID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"removed": true}))
}

func (h *PinHandler) ListLinks(c *gin.Context) {
	a, ok := actorOrAbort(c)
	if !ok {
		return
	}
	pinID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	items, err := h.service.ListLinks(c.Request.Context(), a, pinID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListPinLinksResponse{
		Links: httpdto.FromPinLinkSlice(items),
	}))
}
