package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/auth"
	"github.com/usgears/storefront/pkg/ctx"
)

type UploadController struct {
	files *services.FileService
}

func NewUploadController(files *services.FileService) *UploadController {
	return &UploadController{files: files}
}

// parse reads the multipart body, answering 413/400 itself on failure.
func parse(c *ctx.Context) bool {
	err := c.ParseMultipart(config.MaxUploadBytes())
	switch {
	case errors.Is(err, ctx.ErrBodyTooLarge):
		c.Error(http.StatusRequestEntityTooLarge, "Upload too large")
		return false
	case err != nil:
		c.BadRequest("Expected multipart form data")
		return false
	}
	return true
}

// Store handles admin media uploads. One file answers a single object,
// several answer an array with a per-file error for rejected ones.
func (uc *UploadController) Store(c *ctx.Context) {
	if !parse(c) {
		return
	}
	files := services.FromMultipart(c.Files("files", "file"))
	if len(files) == 0 {
		c.BadRequest("No file uploaded")
		return
	}

	var uploader string
	if claims, ok := auth.FromContext(c.Context()); ok {
		uploader = claims.Email
	}

	results, err := uc.files.UploadMedia(c.Context(), files, c.FormValue("category"), uploader)
	if errors.Is(err, services.ErrNoValidFiles) {
		c.JSON(http.StatusBadRequest, map[string]any{
			"status":  http.StatusBadRequest,
			"message": "No valid files uploaded",
			"error":   "No valid files uploaded",
			"errors":  results,
		})
		return
	}
	if err != nil {
		fail(c, err, "File")
		return
	}
	if len(results) == 1 {
		c.Created(results[0])
		return
	}
	c.Created(results)
}

func (uc *UploadController) Destroy(c *ctx.Context) {
	id := strings.TrimSpace(c.Query("fileId"))
	if id == "" {
		c.BadRequest("No file ID provided")
		return
	}
	up, err := uc.files.DeleteUpload(c.Context(), id)
	switch {
	case errors.Is(err, services.ErrInvalidID):
		c.BadRequest("Invalid file ID format")
		return
	case err != nil:
		fail(c, err, "File")
		return
	}
	c.JSON(http.StatusOK, map[string]any{
		"message":          "File deleted successfully",
		"fileId":           id,
		"originalFilename": up.OriginalFilename,
		"path":             up.Path,
	})
}

// StoreProofs is the public checkout upload of payment screenshots.
func (uc *UploadController) StoreProofs(c *ctx.Context) {
	if !parse(c) {
		return
	}
	files := services.FromMultipart(c.Files("files"))
	res, err := uc.files.UploadProofs(c.Context(), files, c.FormValue("orderData"), c.FormValue("category"))
	if errors.Is(err, services.ErrMissingFields) {
		c.BadRequest("Missing files or order data")
		return
	}
	if err != nil {
		fail(c, err, "File")
		return
	}
	c.JSON(http.StatusOK, res)
}
