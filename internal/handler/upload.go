package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stockypocky/stockyweb/internal/upload"
)

const (
	msgUploadDisabled = "画像アップロードは利用できません。"
	msgUploadTooLarge = "画像サイズが大きすぎます。"
	msgUploadFormat   = "対応していない画像形式です。"
	msgUploadFailed   = "画像のアップロードに失敗しました。"
)

type UploadHandler struct {
	uploader *upload.Uploader
	logger   *slog.Logger
}

func NewUploadHandler(u *upload.Uploader, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploader: u, logger: logger}
}

// Image handles POST /uploads/images. It accepts a multipart "image" field
// or a raw image body.
func (h *UploadHandler) Image(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil || !h.uploader.Enabled() {
		writeError(w, http.StatusServiceUnavailable, msgUploadDisabled)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxUploadBytes)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("image")
		if err != nil {
			h.writeReadError(w, err)
			return
		}
		defer file.Close()
		body = file
	}

	url, err := h.uploader.Upload(r.Context(), body)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]string{"url": url})
	case errors.Is(err, context.Canceled):
		h.logger.Debug("upload cancelled")
	case errors.Is(err, upload.ErrUnsupportedImage):
		writeError(w, http.StatusBadRequest, msgUploadFormat)
	case errors.Is(err, upload.ErrImageTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
			return
		}
		h.logger.Error("upload image", "error", err)
		writeError(w, http.StatusBadGateway, msgUploadFailed)
	}
}

func (h *UploadHandler) writeReadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
		return
	}
	writeError(w, http.StatusBadRequest, msgInvalidInput)
}
