package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/team-todo-api/internal/errors"
)

const helpGuideFile = "guide.html"

// HelpHandler serves the static user guide.
type HelpHandler struct {
	dir string
}

func NewHelpHandler(dir string) *HelpHandler {
	return &HelpHandler{dir: dir}
}

// Guide returns the HTML guide
func (h *HelpHandler) Guide(c *gin.Context) {
	page, err := os.ReadFile(filepath.Join(h.dir, helpGuideFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			apierrors.NotFound(c, "Help guide is not installed")
			return
		}
		c.Error(err)
		apierrors.InternalError(c, "")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// Health reports liveness
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Team todo API is running",
	})
}
