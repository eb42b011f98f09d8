package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// расширения по MIME-типу из сниффинга содержимого
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// UploadImageResponse — ответ с публичным путем загруженной картинки
type UploadImageResponse struct {
	URL string `json:"url"`
}

// UploadImageHandler обрабатывает POST /api/admin/uploads.
// Принимает multipart-поле file, тип определяется по содержимому,
// имя файла генерируется заново — клиентское не используется.
func UploadImageHandler(log *slog.Logger, uploadDir string, maxSizeMB int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UploadImageHandler"
		logger := log.With(slog.String("op", op))

		maxBytes := maxSizeMB << 20
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		file, _, err := r.FormFile("file")
		if err != nil {
			logger.Warn("failed to read upload", slog.Any("error", err))
			respondError(w, logger, http.StatusBadRequest, "file is required and must not exceed the size limit")
			return
		}
		defer file.Close()

		head := make([]byte, 512)
		n, err := file.Read(head)
		if err != nil && err != io.EOF {
			logger.Error("failed to read file header", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}

		ext, ok := imageExtensions[http.DetectContentType(head[:n])]
		if !ok {
			respondError(w, logger, http.StatusBadRequest, "only png, jpeg and webp images are allowed")
			return
		}

		if _, err := file.Seek(0, io.SeekStart); err != nil {
			logger.Error("failed to rewind file", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}

		name := uuid.NewString() + ext
		dst, err := os.Create(filepath.Join(uploadDir, name))
		if err != nil {
			logger.Error("failed to create file", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}
		defer dst.Close()

		if _, err := io.Copy(dst, file); err != nil {
			logger.Error("failed to save file", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "internal server error")
			return
		}

		logger.Info("image uploaded", slog.String("file", name))
		respondOK(w, logger, http.StatusCreated, "image uploaded", UploadImageResponse{URL: "/images/" + name})
	}
}
