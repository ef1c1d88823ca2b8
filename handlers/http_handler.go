// Package handlers provides the HTTP endpoints of the drug-master API: dataset reads, catalog
// inspection, derived views and health.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/errs"
	"github.com/shiro46mt/jp-medicine-master/interfaces"
	"github.com/shiro46mt/jp-medicine-master/loader"
	"github.com/shiro46mt/jp-medicine-master/logging"
	"github.com/shiro46mt/jp-medicine-master/table"
	"github.com/shiro46mt/jp-medicine-master/validation"
	"github.com/shiro46mt/jp-medicine-master/views"
)

// Master is the part of master.Service the handlers call.
type Master interface {
	Catalog() (*catalog.Catalog, error)
	Resolve(kind catalog.Kind, sel catalog.Selector) (catalog.FileEntry, error)
	ReadTable(kind catalog.Kind, sel catalog.Selector, opts loader.Options) (*table.Table, error)
	AvailableYears(kind catalog.Kind) ([]int, error)
	RevisionYears(kind catalog.Kind) ([]int, error)
	AuthorizedGenerics() (*views.Classified, error)
	Biosimilars(sel catalog.Selector) (*views.Classified, error)
	BiosimilarYears() ([]int, error)
	FullYearView(year int) (*table.Table, error)
	AugmentedCodeView(sel catalog.Selector) (*table.Table, error)
}

// HTTPHandlerImpl serves the API over a Master.
type HTTPHandlerImpl struct {
	master    Master
	health    interfaces.HealthChecker
	validator *validation.DataValidator
}

// NewHTTPHandler creates a handler with injected dependencies.
func NewHTTPHandler(master Master, health interfaces.HealthChecker, validator *validation.DataValidator) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		master:    master,
		health:    health,
		validator: validator,
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// RespondWithJSON writes a JSON response.
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response.
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	h.RespondWithJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}

// respondWithCSV streams a CSV attachment. Headers are sent before the body is produced, so a
// write failure can only be logged.
func (h *HTTPHandlerImpl) respondWithCSV(w http.ResponseWriter, filename string, write func(io.Writer) error) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)

	if err := write(w); err != nil {
		logging.Error("Failed to write CSV response", "file", filename, "error", err)
	}
}

// respondWithFailure maps a core error to its HTTP status.
func (h *HTTPHandlerImpl) respondWithFailure(w http.ResponseWriter, r *http.Request, err error) {
	code := errorStatus(err)
	if code >= http.StatusInternalServerError {
		logging.Error("Request failed", "path", r.URL.Path, "status", code, "error", err)
	} else {
		logging.Debug("Request rejected", "path", r.URL.Path, "status", code, "error", err)
	}
	h.RespondWithError(w, code, err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidSelector), errors.Is(err, errs.ErrUnknownDatasetKind):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNoMatchingFile):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrSourceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
