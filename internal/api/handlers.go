package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/spigell/community-ranker/internal/filtering"
	"github.com/spigell/community-ranker/internal/logger"
	"github.com/spigell/community-ranker/internal/payload"
	"github.com/spigell/community-ranker/internal/ranking"
	"github.com/spigell/community-ranker/internal/scoring"
	"github.com/spigell/community-ranker/internal/sheet"
	"github.com/spigell/community-ranker/internal/utils"
)

// Error types reported to clients.
const (
	ErrorTypeValidation    = "ValidationError"
	ErrorTypeUnprocessable = "UnprocessableContentError"
	ErrorTypeCommunityData = "CommunityDataError"
	ErrorTypeStorage       = "StorageError"
	ErrorTypeInternal      = "InternalError"
)

type errorBody struct {
	Error errorDetails `json:"error"`
}

type errorDetails struct {
	Message  string   `json:"errorMessage"`
	Type     string   `json:"errorType"`
	Problems []string `json:"problems,omitempty"`
}

type validationReport struct {
	Valid       bool `json:"valid"`
	Communities int  `json:"n_communities"`
}

type workbookPayload struct {
	Workbook string `json:"xlsx_base64_encoded"`
}

func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Rank ranks the communities for the buyer described by the request body.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.Logger)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorTypeValidation, fmt.Errorf("read body: %w", err))
		return
	}
	log.Debug("rank request", zap.String("payload", utils.FlattenForLog(string(body), logPreview)))

	req, err := h.Parser.Parse(body)
	if err != nil {
		log.Warn("rejecting payload", zap.Error(err))
		writeError(w, http.StatusBadRequest, ErrorTypeValidation, err)
		return
	}
	log = logger.WithFields(log, logger.RequestFields("", req.EmailAddress, h.Source.String())...)

	wb, err := h.Source.Load(ctx)
	if err != nil {
		log.Error("loading community data", zap.Error(err))
		if errors.Is(err, sheet.ErrFetch) {
			writeError(w, http.StatusBadGateway, ErrorTypeStorage, err)
			return
		}
		writeError(w, http.StatusInternalServerError, ErrorTypeInternal, err)
		return
	}

	engine := *h.Engine
	engine.Logger = log
	outcome, err := engine.Run(ctx, wb.Needs, wb.Wants, req.Needs, req.Wants)
	switch {
	case errors.Is(err, filtering.ErrInvalidCriteria), errors.Is(err, scoring.ErrInvalidWeight):
		writeError(w, http.StatusBadRequest, ErrorTypeValidation, err)
		return
	case err != nil:
		log.Error("ranking failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, ErrorTypeInternal, err)
		return
	}

	if err := outcome.Err(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, ErrorTypeUnprocessable, err)
		return
	}

	writeJSON(w, http.StatusOK, ranking.NewResponse(req.EmailAddress, outcome))
}

// ValidateCommunityData checks a workbook without storing it.
func (h *Handler) ValidateCommunityData(w http.ResponseWriter, r *http.Request) {
	wb, ok := h.readWorkbook(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, validationReport{Valid: true, Communities: wb.Needs.Len()})
}

// UpdateCommunityData validates a workbook and replaces the stored one.
func (h *Handler) UpdateCommunityData(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.Logger)

	if h.Storage == nil {
		writeError(w, http.StatusNotImplemented, ErrorTypeStorage, errors.New("community data storage is not configured"))
		return
	}

	raw, ok := h.readWorkbookBytes(w, r)
	if !ok {
		return
	}
	if _, ok := h.parseWorkbook(w, r, raw); !ok {
		return
	}

	obj, err := h.Storage.Store(r.Context(), bytes.NewReader(raw), h.ObjectKey)
	if err != nil {
		log.Error("storing community data", zap.Error(err))
		writeError(w, http.StatusBadGateway, ErrorTypeStorage, err)
		return
	}

	log.Info("community data updated",
		zap.String("bucket", obj.Bucket),
		zap.String("object", obj.Key),
		zap.String("version_id", obj.VersionID),
	)
	writeJSON(w, http.StatusOK, obj)
}

func (h *Handler) readWorkbook(w http.ResponseWriter, r *http.Request) (*sheet.Workbook, bool) {
	raw, ok := h.readWorkbookBytes(w, r)
	if !ok {
		return nil, false
	}
	return h.parseWorkbook(w, r, raw)
}

// readWorkbookBytes accepts a raw xlsx body or a JSON document carrying the
// workbook base64 encoded.
func (h *Handler) readWorkbookBytes(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWorkbookSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorTypeValidation, fmt.Errorf("read body: %w", err))
		return nil, false
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return body, true
	}

	var p workbookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		writeError(w, http.StatusBadRequest, ErrorTypeValidation, fmt.Errorf("decode body: %w", err))
		return nil, false
	}
	if p.Workbook == "" {
		writeError(w, http.StatusBadRequest, ErrorTypeValidation, errors.New("xlsx_base64_encoded is required"))
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(p.Workbook)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorTypeValidation, fmt.Errorf("decode xlsx_base64_encoded: %w", err))
		return nil, false
	}
	return raw, true
}

func (h *Handler) parseWorkbook(w http.ResponseWriter, r *http.Request, raw []byte) (*sheet.Workbook, bool) {
	log := logger.FromContext(r.Context(), h.Logger)

	wb, err := h.Loader.ReadWorkbook(bytes.NewReader(raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorTypeCommunityData, err)
		return nil, false
	}

	if err := sheet.Validate(h.Schema, wb); err != nil {
		var dataErr *sheet.DataError
		if errors.As(err, &dataErr) {
			log.Warn("community data rejected", zap.Int("problems", len(dataErr.Problems)))
			writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetails{
				Message:  "community data failed validation",
				Type:     ErrorTypeCommunityData,
				Problems: dataErr.Messages(),
			}})
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, ErrorTypeInternal, err)
		return nil, false
	}
	return wb, true
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	details := errorDetails{Message: err.Error(), Type: kind}

	var v *payload.ValidationError
	if errors.As(err, &v) {
		details.Problems = v.Problems
	}
	writeJSON(w, status, errorBody{Error: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
