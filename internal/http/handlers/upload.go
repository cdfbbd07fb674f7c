package handlers

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

var allowedVideoTypes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
	"video/x-msvideo": true,
}

// Upload accepts a multipart video blob, stores it and returns the
// durable URL a subsequent submit consumes as sourceUrl. This is the
// object storage collaborator boundary; the job core never sees the
// bytes.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload size limit")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedVideoTypes[contentType] {
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_type", "upload a video file (mp4, webm, quicktime or avi)")
		return
	}

	uploadID := uuid.NewString()
	name := path.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "video"
	}
	key, size, err := a.Uploads.Save(r.Context(), "uploads/"+uploadID+"/"+name, file)
	if err != nil {
		a.Logger.Error().Err(err).Msg("upload store failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store upload")
		return
	}

	a.json(w, http.StatusCreated, map[string]any{
		"success":  true,
		"uploadId": uploadID,
		"url":      strings.TrimRight(a.StorageBaseURL, "/") + "/" + key,
		"name":     name,
		"size":     size,
	})
}
