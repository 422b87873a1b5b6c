// Package http exposes the editor's REST surface: project and version
// management, settings, console access, share codes, and the rendered
// preview document.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/webpadhq/webpad/internal/console"
	"github.com/webpadhq/webpad/internal/session"
	"github.com/webpadhq/webpad/internal/share"
	"github.com/webpadhq/webpad/internal/shared/types"
	"github.com/webpadhq/webpad/internal/store"
)

// Version is reported by the health endpoints.
const Version = "0.3.0"

// Handlers contains all HTTP handlers.
type Handlers struct {
	session *session.Manager
	store   store.Store
	bridge  *console.Bridge
}

// NewHandlers creates a new handler set.
func NewHandlers(sess *session.Manager, st store.Store, bridge *console.Bridge) *Handlers {
	return &Handlers{
		session: sess,
		store:   st,
		bridge:  bridge,
	}
}

// Root handles health check.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "webpad",
		"version": Version,
	})
}

// Health handles detailed health check.
func (h *Handlers) Health(c *gin.Context) {
	p := h.session.Project()
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"project": p.ID,
		"dirty":   h.session.Dirty(),
		"channel": h.session.ActiveChannel(),
	})
}

// ListProjects lists all stored projects, most recently updated first.
func (h *Handlers) ListProjects(c *gin.Context) {
	projects, err := h.session.Projects(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// CreateProject creates and opens a blank project.
func (h *Handlers) CreateProject(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	_ = c.ShouldBindJSON(&req)

	p := h.session.NewProject(c.Request.Context(), req.Name)
	c.JSON(http.StatusCreated, gin.H{"project": p})
}

// GetProject returns a stored project by id.
func (h *Handlers) GetProject(c *gin.Context) {
	p, err := h.store.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

// OpenProject switches the session to a stored project.
func (h *Handlers) OpenProject(c *gin.Context) {
	err := h.session.LoadProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": h.session.Project()})
}

// RenameProject renames a stored project. Renaming the open project goes
// through the session so the in-memory record stays in sync.
func (h *Handlers) RenameProject(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	projectID := c.Param("id")

	if h.session.Project().ID == projectID {
		if err := h.session.Rename(ctx, req.Name); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"project": h.session.Project()})
		return
	}

	p, err := h.store.GetProject(ctx, projectID)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	p.Name = req.Name
	p.UpdatedAt = nowMilli()
	if err := h.store.SaveProject(ctx, p); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

func nowMilli() int64 {
	return time.Now().UnixMilli()
}

// DeleteProject removes a project and all its versions.
func (h *Handlers) DeleteProject(c *gin.Context) {
	if err := h.session.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deleted": c.Param("id"),
		"project": h.session.Project(),
	})
}

// UpdateFile replaces one working file of the open project.
func (h *Handlers) UpdateFile(c *gin.Context) {
	var req struct {
		Language string `json:"language" binding:"required"`
		Content  string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.session.UpdateFile(types.Language(req.Language), req.Content)
	c.JSON(http.StatusOK, gin.H{"dirty": h.session.Dirty()})
}

// SaveProject persists the open project's working files.
func (h *Handlers) SaveProject(c *gin.Context) {
	if err := h.session.Save(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": h.session.Project()})
}

// RunPreview launches a fresh preview run of the working files.
func (h *Handlers) RunPreview(c *gin.Context) {
	doc, channel := h.session.Run()
	c.JSON(http.StatusOK, gin.H{
		"document": doc,
		"channel":  channel,
	})
}

// Preview serves the rendered document directly, for iframe consumption.
// Loading it counts as a run: a fresh channel is minted.
func (h *Handlers) Preview(c *gin.Context) {
	doc, _ := h.session.Run()
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

// CreateVersion saves the working files and captures them as a snapshot.
func (h *Handlers) CreateVersion(c *gin.Context) {
	var req struct {
		Label string `json:"label"`
	}
	_ = c.ShouldBindJSON(&req)

	entry, err := h.session.Snapshot(c.Request.Context(), req.Label)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"version": entry})
}

// ListVersions lists the open project's snapshots, newest first.
func (h *Handlers) ListVersions(c *gin.Context) {
	versions, err := h.session.Versions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// RestoreVersion loads a snapshot into the working copy without saving.
func (h *Handlers) RestoreVersion(c *gin.Context) {
	err := h.session.RestoreVersion(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"files": h.session.WorkingFiles(),
		"dirty": h.session.Dirty(),
	})
}

// DeleteVersion removes a single snapshot.
func (h *Handlers) DeleteVersion(c *gin.Context) {
	if err := h.session.RemoveVersion(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

// GetConsole returns the retained console log and the panel state.
func (h *Handlers) GetConsole(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"entries": h.bridge.Entries(),
		"open":    h.bridge.Open(),
	})
}

// ClearConsole empties the console log.
func (h *Handlers) ClearConsole(c *gin.Context) {
	h.session.ClearConsole()
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// SetConsoleOpen toggles the console panel.
func (h *Handlers) SetConsoleOpen(c *gin.Context) {
	var req struct {
		Open bool `json:"open"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.bridge.SetOpen(req.Open)
	c.JSON(http.StatusOK, gin.H{"open": h.bridge.Open()})
}

// GetSettings returns the editor preferences.
func (h *Handlers) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.session.Settings()})
}

// UpdateSettings replaces the editor preferences.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var req types.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.session.UpdateSettings(c.Request.Context(), req); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    err.Error(),
			"settings": h.session.Settings(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": h.session.Settings()})
}

// CreateShare encodes the working files into a share code.
func (h *Handlers) CreateShare(c *gin.Context) {
	code, err := share.Encode(h.session.WorkingFiles(), h.session.Project().UseTailwind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

// ImportShare decodes a share code into a new project and opens it.
func (h *Handlers) ImportShare(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	files, useTailwind, err := share.Decode(req.Code)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := h.session.ImportProject(c.Request.Context(), req.Name, files, useTailwind)
	c.JSON(http.StatusCreated, gin.H{"project": p})
}
