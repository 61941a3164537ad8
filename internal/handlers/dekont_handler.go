package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/bkaraoglu/stajportal/internal/auth"
	"github.com/bkaraoglu/stajportal/internal/models"
	"github.com/bkaraoglu/stajportal/internal/ratelimit"
	"github.com/bkaraoglu/stajportal/internal/upload"
	pkghttp "github.com/bkaraoglu/stajportal/pkg/http"
	"github.com/bkaraoglu/stajportal/pkg/sanitize"
)

// DekontHandler handles dekont (payment receipt) analysis requests:
// rate limit, file validation, input sanitization, audit.
type DekontHandler struct {
	limiter        *ratelimit.Limiter
	fileValidator  *upload.Validator
	batchValidator *upload.BatchValidator
	audit          Auditor
	maxFileSize    int64
}

// NewDekontHandler creates a new DekontHandler
func NewDekontHandler(limiter *ratelimit.Limiter, fileValidator *upload.Validator, batchValidator *upload.BatchValidator, audit Auditor, maxFileSize int64) *DekontHandler {
	return &DekontHandler{
		limiter:        limiter,
		fileValidator:  fileValidator,
		batchValidator: batchValidator,
		audit:          audit,
		maxFileSize:    maxFileSize,
	}
}

// AnalyzeResponse acknowledges an accepted dekont
type AnalyzeResponse struct {
	Accepted bool   `json:"accepted"`
	FileName string `json:"file_name"`
	Note     string `json:"note,omitempty"`
	Message  string `json:"message"`
}

// Analyze handles POST /dekont/analyze: a multipart upload that must
// pass the rate limiter and the file validation pipeline before being
// handed to downstream processing.
func (h *DekontHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Oturum bulunamadı.")
		return
	}

	if limited := h.limiter.CheckAnalysis(claims.EntityID); !limited.IsValid {
		h.audit.LogEvent(r.Context(), claims.EntityID, models.AuditActionRateLimited,
			map[string]any{"operation": ratelimit.OpAnalysis}, models.SeverityWarning)
		pkghttp.WriteTooManyRequests(w, limited.Error)
		return
	}

	// Bound the multipart read a little above the validation ceiling so
	// the pipeline can report FILE_TOO_LARGE itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1024*1024)
	if err := r.ParseMultipartForm(h.maxFileSize + 1024*1024); err != nil {
		pkghttp.WriteBadRequest(w, "Dosya yüklenemedi.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		pkghttp.WriteBadRequest(w, "Dekont dosyası eksik.")
		return
	}
	defer file.Close()

	buf, err := io.ReadAll(file)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Dosya okunamadı.")
		return
	}

	result := h.fileValidator.Validate(buf, header.Filename, header.Header.Get("Content-Type"))
	if !result.IsValid {
		h.audit.LogEvent(r.Context(), claims.EntityID, models.AuditActionFileRejected,
			map[string]any{"file_name": header.Filename, "code": result.Code}, models.SeverityWarning)
		pkghttp.WriteUnprocessable(w, result.Code, result.Error)
		return
	}

	note := sanitize.String(r.FormValue("note"))

	h.audit.LogEvent(r.Context(), claims.EntityID, models.AuditActionAnalysisOK,
		map[string]any{"file_name": header.Filename, "size": len(buf)}, models.SeverityInfo)

	pkghttp.WriteJSON(w, http.StatusOK, AnalyzeResponse{
		Accepted: true,
		FileName: header.Filename,
		Note:     note,
		Message:  "Dekont analiz kuyruğuna alındı.",
	})
}

// BatchAnalyzeRequest is the batch analysis payload
type BatchAnalyzeRequest struct {
	DekontIDs []string `json:"dekont_ids"`
}

// BatchAnalyzeResponse acknowledges an accepted batch
type BatchAnalyzeResponse struct {
	Accepted bool   `json:"accepted"`
	Count    int    `json:"count"`
	Message  string `json:"message"`
}

// BatchAnalyze handles POST /dekont/analyze/batch
func (h *DekontHandler) BatchAnalyze(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Oturum bulunamadı.")
		return
	}

	if limited := h.limiter.CheckBatchAnalysis(claims.EntityID); !limited.IsValid {
		h.audit.LogEvent(r.Context(), claims.EntityID, models.AuditActionRateLimited,
			map[string]any{"operation": ratelimit.OpBatchAnalysis}, models.SeverityWarning)
		pkghttp.WriteTooManyRequests(w, limited.Error)
		return
	}

	var req BatchAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Geçersiz istek gövdesi.")
		return
	}

	result := h.batchValidator.ValidateBatch(req.DekontIDs)
	if !result.IsValid {
		h.audit.LogEvent(r.Context(), claims.EntityID, models.AuditActionBatchRejected,
			map[string]any{"code": result.Code, "count": len(req.DekontIDs)}, models.SeverityWarning)
		pkghttp.WriteUnprocessable(w, result.Code, result.Error)
		return
	}

	h.audit.LogEvent(r.Context(), claims.EntityID, models.AuditActionAnalysisOK,
		map[string]any{"count": len(req.DekontIDs), "batch": true}, models.SeverityInfo)

	pkghttp.WriteJSON(w, http.StatusOK, BatchAnalyzeResponse{
		Accepted: true,
		Count:    len(req.DekontIDs),
		Message:  "Toplu analiz kuyruğa alındı.",
	})
}
