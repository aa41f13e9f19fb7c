package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"imgcap/models"
	"imgcap/pkg/caption"
	"imgcap/pkg/store"
)

const (
	maxUploadBytes = 10 * 1024 * 1024
	// apiRunID groups analyses requested over HTTP.
	apiRunID = "api"
)

// captionRecord is an analysis as served by the API, with its database id.
type captionRecord struct {
	RecordID uint   `json:"record_id"`
	RunID    string `json:"run_id"`
	caption.Analysis
}

func setupRoutes(r *gin.Engine) {
	r.POST("/login", loginHandler)
	r.GET("/ws", wsHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.POST("/captions", createCaptionHandler)
	authGroup.GET("/captions", listCaptionsHandler)
	authGroup.GET("/captions/:id", getCaptionHandler)
}

func loginHandler(c *gin.Context) {
	var req struct {
		Name   string `json:"name" binding:"required"`
		Secret string `json:"secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := st.AuthenticateClient(req.Name, req.Secret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := issueToken(client.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString})
}

// createCaptionHandler stores an uploaded image, describes it and publishes the result.
func createCaptionHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	name := filepath.Base(file.Filename)
	if !caption.IsSupportedImage(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type (png, jpg, jpeg)"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
		return
	}
	// one directory per upload keeps the original file name for the analysis
	dir := filepath.Join(cfg.UploadBase, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return
	}
	fullPath := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	a := describer.Describe(c.Request.Context(), fullPath)
	row, err := st.SaveAnalysis(apiRunID, a)
	if err != nil {
		log.Printf("ERROR save analysis %s: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}
	if hub != nil {
		if err := hub.BroadcastJSON(a); err != nil {
			log.Printf("WARN broadcast %s: %v", name, err)
		}
	}
	status := http.StatusOK
	if a.Failed() {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, captionRecord{RecordID: row.ID, RunID: row.RunID, Analysis: a})
}

func listCaptionsHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := st.ListAnalyses(limit, c.Query("tag"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := make([]captionRecord, 0, len(rows))
	for i := range rows {
		rec, err := toRecord(&rows[i])
		if err != nil {
			log.Printf("WARN skip analysis %d: %v", rows[i].ID, err)
			continue
		}
		out = append(out, rec)
	}
	c.JSON(http.StatusOK, out)
}

func getCaptionHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	row, err := st.GetAnalysis(uint(id))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	rec, err := toRecord(row)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "corrupt record"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func wsHandler(c *gin.Context) {
	if hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feed unavailable"})
		return
	}
	hub.ServeWS(c.Writer, c.Request)
}

func toRecord(row *models.ImageAnalysis) (captionRecord, error) {
	a, err := store.DecodeAnalysis(row)
	if err != nil {
		return captionRecord{}, err
	}
	return captionRecord{RecordID: row.ID, RunID: row.RunID, Analysis: a}, nil
}
