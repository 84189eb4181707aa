package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/zombor/factura-export/internal/source"
)

// maxFormSize bounds multipart uploads
const maxFormSize = int64(50 << 20) // 50MB

// maxExportSize bounds the JSON body of an export request
var maxExportSize = maxFormSize

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Access-Token")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeJSONError writes an error message as a JSON response
func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{
		"error": message,
	})
}

// batchStatus maps a batch to a response code: a batch where every document failed is unprocessable
func batchStatus(batch *Batch) int {
	if batch.Empty() && batch.Failed > 0 {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

// readDocuments loads every uploaded file of the form as a document
func readDocuments(form *multipart.Form) ([]source.Document, error) {
	var headers []*multipart.FileHeader
	headers = append(headers, form.File["files"]...)
	headers = append(headers, form.File["file"]...)

	docs := make([]source.Document, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", header.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", header.Filename, err)
		}
		docs = append(docs, source.Document{FileName: header.Filename, Content: string(data)})
	}
	return docs, nil
}

// handleExtractInvoices extracts invoices from uploaded XML files
func (s *Server) handleExtractInvoices(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	docs, err := readDocuments(r.MultipartForm)
	if err != nil {
		slog.Error("Error reading uploaded files", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Error reading files. Please try again.")
		return
	}
	if len(docs) == 0 {
		writeJSONError(w, http.StatusBadRequest, "No se seleccionaron archivos.")
		return
	}

	batch := s.service.ProcessDocuments(r.Context(), docs)
	writeJSON(w, batchStatus(batch), batch)
}

// handleImportMail extracts invoices from Gmail attachments
func (s *Server) handleImportMail(w http.ResponseWriter, r *http.Request) {
	token := s.accessToken(r)
	if token == "" {
		writeJSONError(w, http.StatusUnauthorized, "Access token required")
		return
	}

	var filter source.Filter
	if month := r.URL.Query().Get("month"); month != "" {
		m, err := source.ParseMonth(month)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid month, expected YYYY-MM")
			return
		}
		filter.Month = m
	}
	filter.Company = r.URL.Query().Get("company")

	batch, err := s.service.ImportMail(r.Context(), token, filter)
	if err != nil {
		slog.Error("Error importing mail", "error", err)
		writeJSONError(w, http.StatusBadGateway, "Ocurrió un error al procesar los archivos de Gmail.")
		return
	}

	writeJSON(w, batchStatus(batch), batch)
}

// handleExport returns the posted records as a downloadable file
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var records []*Record
	body := http.MaxBytesReader(w, r.Body, maxExportSize)
	if err := json.NewDecoder(body).Decode(&records); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, record := range records {
		if record == nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	var buf bytes.Buffer
	if err := s.service.Export(&buf, records, format); err != nil {
		if errors.Is(err, ErrNoRecords) {
			writeJSONError(w, http.StatusBadRequest, "No hay datos para exportar.")
			return
		}
		slog.Error("Error exporting records", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.FileName()))
	w.Write(buf.Bytes())
}
