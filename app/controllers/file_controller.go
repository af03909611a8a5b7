package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/usgears/storefront/app/services"
	"github.com/usgears/storefront/pkg/ctx"
	"github.com/usgears/storefront/pkg/logger"
)

type FileController struct {
	files *services.FileService
}

func NewFileController(files *services.FileService) *FileController {
	return &FileController{files: files}
}

// Show streams an upload or payment proof inline.
func (fc *FileController) Show(c *ctx.Context) {
	f, err := fc.files.Open(c.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.NotFound("File not found in database")
		return
	case errors.Is(err, services.ErrFileNotOnDisk):
		c.NotFound("File not found on disk")
		return
	case err != nil:
		fail(c, err, "File")
		return
	}
	defer f.Body.Close()

	name := strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(f.Name)
	c.SetHeader("Content-Disposition", `inline; filename="`+name+`"`)
	c.SetHeader("Cache-Control", "private, max-age=3600")
	if err := c.Stream(http.StatusOK, f.ContentType, f.Body); err != nil {
		logger.WithCtx(c.Context()).Warn("file: stream interrupted", "file", f.Name, "error", err)
	}
}
