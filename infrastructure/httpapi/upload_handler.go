package httpapi

import (
	"chat-relay/domain/mimetypes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const maxUploadBytes = 25 << 20 // 25 MB

// UploadHandler stores attachment blobs on local disk and resolves them to
// a fileUrl the routing core carries opaquely. Files are named
// "{unix-ms}-{original name}" under the uploads directory.
type UploadHandler struct {
	dir string
	log *slog.Logger
}

func NewUploadHandler(dir string, log *slog.Logger) *UploadHandler {
	return &UploadHandler{dir: dir, log: log}
}

type uploadResponse struct {
	FileURL string `json:"fileUrl"`
	Type    string `json:"type"`
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable upload")
		return
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(header.Filename))
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		h.log.Error("Failed to store upload", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "storage failed")
		return
	}

	kind := mimetypes.KindOf(mimetypes.Detect(content))
	writeJSON(w, http.StatusCreated, uploadResponse{
		FileURL: "/uploads/" + name,
		Type:    string(kind),
	})
}
