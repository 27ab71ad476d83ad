package server

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/iksnae/chatdesk/internal"
	"github.com/iksnae/chatdesk/internal/export"
	"github.com/labstack/echo/v4"
)

type nameRequest struct {
	Name string `json:"name"`
}

type reorderRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

type sendRequest struct {
	Text   string `json:"text"`
	Model  string `json:"model"`
	ChatID string `json:"chat_id"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Pending  int    `json:"pending"`
}

type modelsResponse struct {
	Default string               `json:"default"`
	Models  []internal.ModelInfo `json:"models"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:   "ok",
		Sessions: s.store.Len(),
		Pending:  s.dispatcher.Pending(),
	})
}

func (s *Server) home(c echo.Context) error {
	if _, err := s.router.Navigate("/"); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.store.View())
}

func (s *Server) openChat(c echo.Context) error {
	requested := c.Request().URL.EscapedPath()
	resolved, err := s.router.Navigate(requested)
	if err != nil {
		return err
	}
	if resolved != requested {
		return c.Redirect(http.StatusFound, resolved)
	}
	return c.JSON(http.StatusOK, s.store.View())
}

func (s *Server) state(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.View())
}

func (s *Server) models(c echo.Context) error {
	return c.JSON(http.StatusOK, modelsResponse{Default: s.opts.DefaultModel, Models: s.opts.Models})
}

func (s *Server) listChats(c echo.Context) error {
	if q := c.QueryParam("q"); q != "" {
		return c.JSON(http.StatusOK, s.store.Search(q))
	}
	return c.JSON(http.StatusOK, s.store.Sessions())
}

// createChat is the "new chat" intent: create and select
func (s *Server) createChat(c echo.Context) error {
	var req nameRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return err
		}
	}

	id := s.store.Create(req.Name)
	if err := s.store.Select(id); err != nil {
		// deleted by a concurrent request before it could be selected
		return err
	}
	session, ok := s.store.Session(id)
	if !ok {
		return &internal.NotFoundError{Kind: "session", ID: id}
	}
	c.Response().Header().Set(echo.HeaderLocation, internal.PathFor(id))
	return c.JSON(http.StatusCreated, session)
}

func (s *Server) getChat(c echo.Context) error {
	id := c.Param("id")
	session, ok := s.store.Session(id)
	if !ok {
		return &internal.NotFoundError{Kind: "session", ID: id}
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) renameChat(c echo.Context) error {
	var req nameRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	id := c.Param("id")
	if err := s.store.Rename(id, req.Name); err != nil {
		return err
	}
	session, _ := s.store.Session(id)
	return c.JSON(http.StatusOK, session)
}

func (s *Server) deleteChat(c echo.Context) error {
	if !s.store.Delete(c.Param("id")) {
		internal.LogDebug("Delete of unknown session %s ignored", c.Param("id"))
	}
	return c.NoContent(http.StatusNoContent)
}

// selectChat leaves the view unchanged for an unknown id
func (s *Server) selectChat(c echo.Context) error {
	if err := s.store.Select(c.Param("id")); err != nil {
		if !internal.IsNotFound(err) {
			return err
		}
		internal.LogDebug("Select ignored: %v", err)
	}
	return c.JSON(http.StatusOK, s.store.View())
}

func (s *Server) reorderChats(c echo.Context) error {
	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.From == nil || req.To == nil {
		return &internal.ValidationError{Field: "index", Reason: "from and to are required"}
	}
	if err := s.store.Reorder(*req.From, *req.To); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.store.Sessions())
}

func (s *Server) chatMessages(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Messages(c.Param("id")))
}

func (s *Server) exportChat(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = "md"
	}
	exporter, err := export.NewExporter(format)
	if err != nil {
		return err
	}

	id := c.Param("id")
	session, ok := s.store.Session(id)
	if !ok {
		return &internal.NotFoundError{Kind: "session", ID: id}
	}

	var buf bytes.Buffer
	if err := exporter.Export(session, &buf); err != nil {
		return &internal.ExportError{Format: format, Path: c.Request().URL.Path, Err: err}
	}
	filename := fmt.Sprintf("chat_%s.%s", session.ID, exporter.Extension())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, exporter.ContentType(), buf.Bytes())
}

func (s *Server) sendMessage(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	receipt, err := s.dispatcher.Send(c.Request().Context(), req.Text, req.Model, req.ChatID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, receipt)
}
