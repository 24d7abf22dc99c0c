package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ripe-api/internal/middleware"
	"github.com/noah-isme/ripe-api/internal/models"
)

func actorFromContext(c *gin.Context) *models.Actor {
	return middleware.ClaimsFromContext(c).Actor()
}
