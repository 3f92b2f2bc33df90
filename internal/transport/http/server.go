// Package http exposes the server's operational endpoints: a health check
// and a read-only stats view over the session registry.
package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/ircwire/internal/config"
	"github.com/vovakirdan/ircwire/internal/core"
)

type statsResponse struct {
	Sessions int           `json:"sessions"`
	Channels []channelStat `json:"channels"`
}

type channelStat struct {
	Name    string `json:"name"`
	Admin   string `json:"admin"`
	Members int    `json:"members"`
}

// NewServer builds the HTTP server with the operational routes.
func NewServer(reg *core.Registry, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", healthHandler)
	router.GET("/v1/stats", statsHandler(reg))

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("http surface enabled")

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

func statsHandler(reg *core.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := reg.Snapshot()
		resp := statsResponse{
			Sessions: snap.Sessions,
			Channels: make([]channelStat, 0, len(snap.Channels)),
		}
		for _, ch := range snap.Channels {
			resp.Channels = append(resp.Channels, channelStat{
				Name:    ch.Name,
				Admin:   ch.Admin,
				Members: ch.Members,
			})
		}
		c.JSON(stdhttp.StatusOK, resp)
	}
}
