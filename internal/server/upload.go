package web

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/kashifkhan1020/KamiNewMods/internal/intake"

	"go.uber.org/zap"
)

const (
	msgUploadOK     = "✅ File uploaded successfully: "
	msgUploadFailed = "❌ File upload failed!"
	msgNoFile       = "❌ No file selected!"
)

func plain(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(msg))
}

// parseMultipart bounds the body and parses it, spilling large files to disk.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	return r.ParseMultipartForm(32 << 20)
}

func uploadsFrom(r *http.Request, field string) ([]intake.Upload, func()) {
	var (
		ups   []intake.Upload
		files []multipart.File
	)
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File[field] {
			f, err := fh.Open()
			if err != nil {
				continue
			}
			files = append(files, f)
			ups = append(ups, intake.Upload{
				Filename: fh.Filename,
				MimeType: fh.Header.Get("Content-Type"),
				Body:     f,
			})
		}
	}
	return ups, func() {
		for _, f := range files {
			f.Close()
		}
	}
}

// handleUpload stores a single multipart "file" as a downloadable item.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			plain(w, http.StatusRequestEntityTooLarge, msgUploadFailed)
			return
		}
		plain(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	ups, closeAll := uploadsFrom(r, "file")
	defer closeAll()
	if len(ups) == 0 {
		plain(w, http.StatusBadRequest, msgNoFile)
		return
	}

	item, err := s.intake.AddArchive(r.Context(), intake.ArchiveRequest{
		Slug:        r.FormValue("slug"),
		Name:        r.FormValue("name"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		Files:       ups[:1],
	})
	if err != nil {
		s.logger.Error("Upload failed", zap.Error(err))
		plain(w, statusFor(err), msgUploadFailed)
		return
	}
	plain(w, http.StatusOK, msgUploadOK+item.Archive.Files[0].Name)
}
