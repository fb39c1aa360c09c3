package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"tracker/dto"
	"tracker/usecase"
	"tracker/utils"

	"github.com/gin-gonic/gin"
)

// Export downloads every collection as a backup file.
func (h *EntityHandler) Export(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	backup, err := h.entities.Export(c.Request.Context(), active.Session)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", usecase.ExportFilename(backup.ExportDate)))
	c.IndentedJSON(http.StatusOK, backup)
}

// Import replaces all collections with an uploaded backup. The file can be
// sent as the raw request body or as the "file" field of a multipart form.
// Nothing is written without ?confirm=true.
func (h *EntityHandler) Import(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	data, err := readImportFile(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, &utils.Response{
				Error: "Import file is too large",
			})
			return
		}
		utils.BadRequest(c, "Could not read import file")
		return
	}

	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	backup, err := h.entities.Import(c.Request.Context(), active.Session, data, confirmed)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.Success(c, dto.ToImportResponse(backup))
}

func readImportFile(c *gin.Context) ([]byte, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return io.ReadAll(c.Request.Body)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
