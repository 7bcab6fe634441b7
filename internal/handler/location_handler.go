package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/pkg/response"
)

// Provinces godoc
// @Summary Prefectures and their dioceses
// @Tags Locations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /locations/provinces [get]
func Provinces(c *gin.Context) {
	response.JSON(c, http.StatusOK, models.Provinces(), nil)
}

// Dioceses godoc
// @Summary Dioceses of Japan
// @Tags Locations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /locations/dioceses [get]
func Dioceses(c *gin.Context) {
	response.JSON(c, http.StatusOK, models.Dioceses(), nil)
}
