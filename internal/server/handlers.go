package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/cognicore/commentpulse/pkg/pulse/analytics"
	"github.com/cognicore/commentpulse/pkg/pulse/internalerr"
	"github.com/cognicore/commentpulse/pkg/pulse/store"
)

// ReportIDHeader carries the archive ID of an /insights result.
const ReportIDHeader = "X-Report-ID"

// defaultWordCloudLimit applies when /wordcloud_data has no limit parameter.
const defaultWordCloudLimit = 100

type handler struct {
	svc     Insights
	logger  zerolog.Logger
	maxBody int64
}

func (h *handler) welcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Welcome to the comment sentiment API"))
}

func (h *handler) predict(w http.ResponseWriter, r *http.Request) {
	var texts []string
	if err := h.decodeComments(w, r, &texts); err != nil {
		h.respondWithError(w, err)
		return
	}
	preds, err := h.svc.Predict(r.Context(), texts)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, preds)
}

func (h *handler) predictWithTimestamps(w http.ResponseWriter, r *http.Request) {
	var comments []analytics.Comment
	if err := h.decodeComments(w, r, &comments); err != nil {
		h.respondWithError(w, err)
		return
	}
	preds, err := h.svc.PredictWithTimestamps(r.Context(), comments)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, preds)
}

func (h *handler) insights(w http.ResponseWriter, r *http.Request) {
	var comments []analytics.Comment
	if err := h.decodeComments(w, r, &comments); err != nil {
		h.respondWithError(w, err)
		return
	}
	report, err := h.svc.Analyze(r.Context(), comments)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	w.Header().Set(ReportIDHeader, report.ID)
	respondWithJSON(w, http.StatusOK, report.Result)
}

func (h *handler) chartData(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SentimentCounts map[string]int `json:"sentiment_counts"`
	}
	if err := h.decodeBody(w, r, &body); err != nil {
		h.respondWithError(w, err)
		return
	}
	shares, err := analytics.DistributionShares(body.SentimentCounts)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, shares)
}

func (h *handler) trendData(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SentimentData []analytics.TrendPoint `json:"sentiment_data"`
	}
	if err := h.decodeBody(w, r, &body); err != nil {
		h.respondWithError(w, err)
		return
	}
	points, err := analytics.Timeline(body.SentimentData)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, points)
}

func (h *handler) wordCloudData(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultWordCloudLimit)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	var texts []string
	if err := h.decodeComments(w, r, &texts); err != nil {
		h.respondWithError(w, err)
		return
	}
	words, err := h.svc.WordCloud(r.Context(), texts, limit)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, words)
}

func (h *handler) listReports(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", store.DefaultListLimit)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	reports, err := h.svc.ListReports(r.Context(), limit)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if reports == nil {
		reports = []store.ReportSummary{}
	}
	respondWithJSON(w, http.StatusOK, reports)
}

func (h *handler) getReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.svc.GetReport(r.Context(), id)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// decodeBody reads a size-limited JSON body into dst. Any decoding failure
// is a validation error.
func (h *handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return internalerr.Validation("invalid JSON body")
	}
	return nil
}

// decodeComments extracts the "comments" array of the request body.
func (h *handler) decodeComments(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	var body struct {
		Comments json.RawMessage `json:"comments"`
	}
	if err := h.decodeBody(w, r, &body); err != nil {
		return err
	}
	raw := bytes.TrimSpace(body.Comments)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return internalerr.Validation("No comments provided")
	}
	if raw[0] != '[' {
		return internalerr.Validation("comments must be an array")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return internalerr.Validation(fmt.Sprintf("invalid comments: %v", err))
	}
	return nil
}

var errBodyTooLarge = errors.New("request body too large")

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, internalerr.Validation(fmt.Sprintf("invalid %s %q", key, v))
	}
	return n, nil
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, internalerr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, internalerr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, internalerr.ErrLabel), errors.Is(err, internalerr.ErrClassifier):
		return http.StatusBadGateway
	case errors.Is(err, internalerr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *handler) respondWithError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	message := err.Error()
	var ve *internalerr.ValidationError
	if errors.As(err, &ve) {
		message = ve.Reason
	}
	if code >= 500 {
		h.logger.Error().Err(err).Int("status", code).Msg("request failed")
	}
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
