package api

import (
	"net/http"

	reqdto "roombook/internal/handler/dto/request"
	resdto "roombook/internal/handler/dto/response"
	"roombook/internal/handler/httperr"
	"roombook/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AvailabilityHandler struct {
	q queries.AvailabilityQueries
}

func NewAvailabilityHandler(q queries.AvailabilityQueries) *AvailabilityHandler {
	return &AvailabilityHandler{q: q}
}

// @Summary Room availability
// @Description Exact per-night availability and price for one room
// @Tags availability
// @Produce json
// @Param id path string true "Room ID"
// @Param check_in query string true "Check-in date (YYYY-MM-DD)"
// @Param check_out query string true "Check-out date (YYYY-MM-DD)"
// @Param quantity query int false "Units wanted (default 1)"
// @Success 200 {object} resdto.AvailabilityResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /rooms/{id}/availability [get]
func (h *AvailabilityHandler) RoomAvailability(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid room id", nil)
		return
	}
	var q reqdto.RoomAvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	checkIn, checkOut, err := q.Dates()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	quantity := q.Quantity
	if quantity == 0 {
		quantity = 1
	}

	view, err := h.q.CheckAvailability(c.Request.Context(), roomID, checkIn, checkOut, quantity)
	if err != nil {
		httperr.AbortWithUseCaseError(c, err)
		return
	}
	resp, err := resdto.FromAvailabilityView(view)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Minimum available units
// @Description Fewest free units over the stay for each room, served from the ledger when warm
// @Tags availability
// @Accept json
// @Produce json
// @Param request body reqdto.MinAvailabilityRequest true "Rooms and stay"
// @Success 200 {object} resdto.MinAvailabilityResponse
// @Failure 400 {object} httperr.Response
// @Router /availability/min [post]
func (h *AvailabilityHandler) MinAvailable(c *gin.Context) {
	var req reqdto.MinAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	checkIn, checkOut, err := req.Stay().Dates()
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}

	units, err := h.q.GetMinAvailableUnits(c.Request.Context(), req.RoomIDs, checkIn, checkOut)
	if err != nil {
		httperr.AbortWithUseCaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromMinAvailable(units))
}

// @Summary Price exclusions
// @Description Rooms whose cached 90-day price range cannot meet the requested bounds
// @Tags availability
// @Accept json
// @Produce json
// @Param request body reqdto.PriceExclusionRequest true "Rooms and price bounds"
// @Success 200 {object} resdto.PriceExclusionResponse
// @Failure 400 {object} httperr.Response
// @Router /availability/price-exclusions [post]
func (h *AvailabilityHandler) PriceExclusions(c *gin.Context) {
	var req reqdto.PriceExclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}

	excluded, err := h.q.GetRoomIdsToExcludeByPriceRange(c.Request.Context(), req.MinPriceCents, req.MaxPriceCents, req.RoomIDs)
	if err != nil {
		httperr.AbortWithUseCaseError(c, err)
		return
	}
	if excluded == nil {
		excluded = []uuid.UUID{}
	}
	c.JSON(http.StatusOK, resdto.PriceExclusionResponse{Excluded: excluded})
}
