package web

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// BackupFilename is the name offered to the browser for the download.
const BackupFilename = "database.db"

// backup sends the raw database file. The copy is buffered so a storage
// error still produces a proper error page.
func (s *Server) backup(w http.ResponseWriter, r *http.Request) error {
	var buf bytes.Buffer
	if err := s.store.Snapshot(r.Context(), &buf); err != nil {
		return fmt.Errorf("failed to snapshot database: %w", err)
	}

	w.Header().Set("Content-Type", "application/x-sqlite3")
	w.Header().Set("Content-Disposition", `attachment; filename="`+BackupFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	n, err := buf.WriteTo(w)
	if err != nil {
		slog.Warn("Backup download interrupted", "written", n, "error", err)
		return nil
	}
	slog.Info("Backup downloaded", "bytes", n)
	return nil
}
