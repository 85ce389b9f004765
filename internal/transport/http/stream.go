package http

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fileconv/internal/application/conversion"
)

// sendDownload writes the batch artifact as an attachment. The returned
// error reports a failure to deliver it.
func sendDownload(w http.ResponseWriter, download *conversion.Download) error {
	file, err := os.Open(download.Path)
	if err != nil {
		http.Error(w, genericError, http.StatusInternalServerError)
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		http.Error(w, genericError, http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", downloadContentType(download))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": download.Name}))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	_, err = io.Copy(w, file)
	return err
}

func downloadContentType(download *conversion.Download) string {
	if download.Archive {
		return "application/zip"
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(download.Name)))
	if contentType == "" {
		contentType = octetStream
	}
	return contentType
}
