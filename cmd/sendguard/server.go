package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"

	"github.com/Marseau/sendguard"
)

type Server struct {
	logger *slog.Logger
	engine *sendguard.Engine
	echo   *echo.Echo
}

func NewServer(logger *slog.Logger, eng *sendguard.Engine) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	srv := &Server{
		logger: logger,
		engine: eng,
		echo:   e,
	}

	e.GET("/_health", srv.HandleHealthCheck)
	e.POST("/admission/check", srv.HandleCheck)
	e.POST("/admission/sent", srv.HandleSent)
	return srv
}

func (srv *Server) RunAPI(bind string) error {
	srv.logger.Info("admission API listening", "bind", bind)
	return srv.echo.Start(bind)
}

func (srv *Server) Shutdown(ctx context.Context) error {
	return srv.echo.Shutdown(ctx)
}

type checkRequestBody struct {
	TenantID     string `json:"tenantId"`
	Recipient    string `json:"recipient"`
	Content      string `json:"content"`
	MessageType  string `json:"messageType"`
	IsTemplate   bool   `json:"isTemplate"`
	TemplateName string `json:"templateName"`
	// optional per-call analysis deadline
	TimeoutMs int `json:"timeoutMs"`
}

func (srv *Server) HandleCheck(c echo.Context) error {
	var body checkRequestBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if body.Recipient == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient is required")
	}
	if body.MessageType == "" {
		body.MessageType = sendguard.MessageTypeText
	}

	ctx := c.Request().Context()
	if body.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(body.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	res := srv.engine.Analyze(ctx, &sendguard.CheckRequest{
		TenantID:     body.TenantID,
		Recipient:    body.Recipient,
		Content:      body.Content,
		MessageType:  body.MessageType,
		IsTemplate:   body.IsTemplate,
		TemplateName: body.TemplateName,
	})
	return c.JSON(http.StatusOK, res)
}

type sentRequestBody struct {
	Recipient    string    `json:"recipient"`
	Content      string    `json:"content"`
	MessageType  string    `json:"messageType"`
	IsTemplate   bool      `json:"isTemplate"`
	TemplateName string    `json:"templateName"`
	SentAt       time.Time `json:"sentAt"`
}

func (srv *Server) HandleSent(c echo.Context) error {
	var body sentRequestBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if body.Recipient == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient is required")
	}
	if body.MessageType == "" {
		body.MessageType = sendguard.MessageTypeText
	}

	err := srv.engine.TrackSent(c.Request().Context(), &sendguard.SentEvent{
		Recipient:    body.Recipient,
		Content:      body.Content,
		MessageType:  body.MessageType,
		IsTemplate:   body.IsTemplate,
		TemplateName: body.TemplateName,
		SentAt:       body.SentAt,
	})
	if err != nil {
		srv.logger.Error("track sent failed", "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to track send")
	}
	return c.NoContent(http.StatusNoContent)
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "healthy",
		"stats":  srv.engine.ReadStats(c.Request().Context()),
	})
}
