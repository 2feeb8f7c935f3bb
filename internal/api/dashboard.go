package api

import (
	"net/http" // HTTP status codes

	"cbms_backend/internal/dashboard" // Reporting views

	"github.com/gin-gonic/gin" // Gin web framework
)

// DashboardStatsHandler returns balance, demographics, team rankings and the caller's announcements
func DashboardStatsHandler(svc *dashboard.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.Stats(c.Request.Context(), currentUser(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// TeamsHandler returns the per-leader, per-member team structure
func TeamsHandler(svc *dashboard.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		teams, err := svc.Teams(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, teams)
	}
}
