package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/alomari/pdfwatermarker/internal/models"
	"github.com/alomari/pdfwatermarker/internal/roster"
	"github.com/alomari/pdfwatermarker/internal/services"
	"github.com/alomari/pdfwatermarker/internal/sink"
)

const maxUploadBytes = 64 << 20

var (
	watermarkerInstance *services.WatermarkerFunction
	once                sync.Once
	initErr             error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleWatermark", handleWatermark)
}

// main is required by the Go Functions Framework.
func main() {}

func handleWatermark(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	once.Do(func() {
		watermarkerInstance, initErr = services.NewWatermarker(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Service unavailable", http.StatusInternalServerError)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		http.Error(w, "Bad request: expected multipart/form-data", http.StatusBadRequest)
		return
	}

	req, preview, err := parseRequest(r)
	if err != nil {
		slog.Error("Invalid request", "error", err)
		http.Error(w, fmt.Sprintf("Bad request: %v", err), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if preview {
		png, err := watermarkerInstance.Preview(ctx, req)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
		return
	}

	result, err := watermarkerInstance.Process(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	switch req.Mode {
	case sink.ModeArchive:
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sink.ArchiveName))
		setResultHeaders(w, result)
		w.Write(result.Archive)

	case sink.ModeOffer:
		if len(result.Documents) == 1 && len(result.Deliveries) == 1 {
			doc := result.Documents[0]
			w.Header().Set("Content-Type", sink.PDFMimeType)
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sink.EntryName(doc.Label)))
			setResultHeaders(w, result)
			w.Write(doc.Content)
			return
		}
		resp := models.DownloadResponse{
			JobID:      result.JobID,
			Deliveries: result.Deliveries,
			Passwords:  result.Passwords,
		}
		for _, doc := range result.Documents {
			resp.Documents = append(resp.Documents, models.OfferedDocument{
				Name:          doc.Label,
				Filename:      sink.EntryName(doc.Label),
				ContentBase64: base64.StdEncoding.EncodeToString(doc.Content),
			})
		}
		writeJSON(w, resp)

	default:
		writeJSON(w, models.WatermarkResponse{
			JobID:      result.JobID,
			Status:     result.Status,
			PageCount:  result.PageCount,
			Deliveries: result.Deliveries,
			Passwords:  result.Passwords,
		})
	}
}

// parseRequest reads the multipart fields. The returned flag selects preview mode.
func parseRequest(r *http.Request) (*services.WatermarkRequest, bool, error) {
	req := &services.WatermarkRequest{
		Names:    roster.FromText(r.FormValue("names")),
		Style:    r.FormValue("style"),
		FolderID: r.FormValue("folderId"),
	}

	modeValue := strings.ToLower(strings.TrimSpace(r.FormValue("mode")))
	preview := modeValue == "preview"
	if !preview {
		mode, err := sink.ParseMode(modeValue)
		if err != nil {
			return nil, false, err
		}
		req.Mode = mode
	}

	if v := r.FormValue("protect"); v != "" {
		protect, err := strconv.ParseBool(v)
		if err != nil {
			return nil, false, fmt.Errorf("protect must be a boolean: %w", err)
		}
		req.Protect = protect
	}

	if file, header, err := r.FormFile("roster"); err == nil {
		req.RosterName = header.Filename
		req.Roster = file
	} else if err != http.ErrMissingFile {
		return nil, false, fmt.Errorf("failed to read roster: %w", err)
	}

	if preview {
		return req, true, nil
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		return nil, false, fmt.Errorf("a pdf file is required: %w", err)
	}
	req.SourceName = header.Filename
	req.Source = file
	return req, false, nil
}

// setResultHeaders lets clients of binary responses tell a partial batch from a complete one.
func setResultHeaders(w http.ResponseWriter, result *services.WatermarkResult) {
	w.Header().Set("X-Job-Id", result.JobID)
	w.Header().Set("X-Job-Status", result.Status)
	w.Header().Set("X-Failed-Count", strconv.Itoa(sink.Failures(result.Deliveries)))
}

func writeError(w http.ResponseWriter, err error) {
	if services.IsLoadError(err) {
		http.Error(w, fmt.Sprintf("Bad request: %v", err), http.StatusBadRequest)
		return
	}
	http.Error(w, fmt.Sprintf("Internal error: %v", err), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
