package handlers

import (
	"io"
	"net/http"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/csvexport"
	"github.com/shiro46mt/jp-medicine-master/loader"
	"github.com/shiro46mt/jp-medicine-master/logging"
	"github.com/shiro46mt/jp-medicine-master/table"
	"github.com/shiro46mt/jp-medicine-master/validation"
)

// CatalogResponse describes the current catalog snapshot.
type CatalogResponse struct {
	Updated  string                 `json:"updated"`
	Datasets []CatalogDatasetDetail `json:"datasets"`
}

type CatalogDatasetDetail struct {
	Kind        catalog.Kind `json:"kind"`
	Description string       `json:"description"`
	Files       []string     `json:"files"`
}

// YearsResponse lists the selectable years of one dataset.
type YearsResponse struct {
	Kind      catalog.Kind `json:"kind"`
	Years     []int        `json:"years"`
	Revisions []int        `json:"revisions"`
}

// ResolveResponse names the file a selector designates.
type ResolveResponse struct {
	Kind     catalog.Kind `json:"kind"`
	Selector string       `json:"selector"`
	File     string       `json:"file"`
	Date     string       `json:"date"`
	Dir      string       `json:"dir,omitempty"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// kind validates the {kind} path segment.
func (h *HTTPHandlerImpl) kind(w http.ResponseWriter, r *http.Request) (catalog.Kind, bool) {
	raw := chi.URLParam(r, "kind")
	kind, err := h.validator.ValidateKind(raw)
	if err != nil {
		logging.Warn("Unusual user input", "kind", raw)
		h.respondWithFailure(w, r, err)
		return "", false
	}
	return kind, true
}

// selector reads the date, year and kaitei query parameters.
func (h *HTTPHandlerImpl) selector(w http.ResponseWriter, r *http.Request) (catalog.Selector, bool) {
	q := r.URL.Query()
	sel, err := catalog.ParseSelector(q.Get("date"), q.Get("year"), q.Get("kaitei"))
	if err != nil {
		h.respondWithFailure(w, r, err)
		return catalog.Selector{}, false
	}
	return sel, true
}

func (h *HTTPHandlerImpl) format(w http.ResponseWriter, r *http.Request) (validation.Format, bool) {
	f, err := h.validator.ValidateFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.respondWithFailure(w, r, err)
		return "", false
	}
	return f, true
}

func (h *HTTPHandlerImpl) respondWithTable(w http.ResponseWriter, f validation.Format, t *table.Table) {
	if f == validation.FormatCSV {
		h.respondWithCSV(w, csvexport.TableFileName(t), func(out io.Writer) error {
			return csvexport.WriteTable(out, t)
		})
		return
	}
	h.RespondWithJSON(w, http.StatusOK, t)
}

// ServeCatalog lists every dataset and its files.
func (h *HTTPHandlerImpl) ServeCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := h.master.Catalog()
	if err != nil {
		h.respondWithFailure(w, r, err)
		return
	}

	resp := CatalogResponse{Updated: c.Updated}
	for _, kind := range catalog.Kinds() {
		spec, _ := catalog.Spec(kind)
		entries, _ := c.Files(kind)
		files := make([]string, 0, len(entries))
		for _, e := range entries {
			files = append(files, e.Path)
		}
		resp.Datasets = append(resp.Datasets, CatalogDatasetDetail{Kind: kind, Description: spec.Description, Files: files})
	}

	h.RespondWithJSON(w, http.StatusOK, resp)
}

// ServeDataset returns one dataset resolved from the query selector.
func (h *HTTPHandlerImpl) ServeDataset(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	sel, ok := h.selector(w, r)
	if !ok {
		return
	}
	f, ok := h.format(w, r)
	if !ok {
		return
	}
	fileInfo, err := h.validator.ValidateFlag("file_info", r.URL.Query().Get("file_info"))
	if err != nil {
		h.respondWithFailure(w, r, err)
		return
	}

	t, err := h.master.ReadTable(kind, sel, loader.Options{IncludeProvenance: fileInfo})
	if err != nil {
		h.respondWithFailure(w, r, err)
		return
	}

	h.respondWithTable(w, f, t)
}

// ServeYears lists the fiscal and revision years a dataset can be read for.
func (h *HTTPHandlerImpl) ServeYears(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}

	years, err := h.master.AvailableYears(kind)
	if err != nil {
		h.respondWithFailure(w, r, err)
		return
	}
	revisions, err := h.master.RevisionYears(kind)
	if err != nil {
		h.respondWithFailure(w, r, err)
		return
	}

	h.RespondWithJSON(w, http.StatusOK, YearsResponse{Kind: kind, Years: years, Revisions: revisions})
}

// ServeResolve reports which file a selector designates without downloading it.
func (h *HTTPHandlerImpl) ServeResolve(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	sel, ok := h.selector(w, r)
	if !ok {
		return
	}

	entry, err := h.master.Resolve(kind, sel)
	if err != nil {
		h.respondWithFailure(w, r, err)
		return
	}

	h.RespondWithJSON(w, http.StatusOK, ResolveResponse{
		Kind:     kind,
		Selector: sel.String(),
		File:     entry.Path,
		Date:     entry.Date,
		Dir:      entry.Dir,
	})
}

// ServeQuality loads a dataset and reports key and column problems.
func (h *HTTPHandlerImpl) ServeQuality(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	sel, ok := h.selector(w, r)
	if !ok {
		return
	}

	t, err := h.master.ReadTable(kind, sel, loader.Options{})
	if err != nil {
		h.respondWithFailure(w, r, err)
		return
	}

	report := h.validator.ReportTableQuality(t)
	validation.LogReport(report)
	h.RespondWithJSON(w, http.StatusOK, report)
}

// ServeAuthorizedGenerics returns the authorized-generic list.
func (h *HTTPHandlerImpl) ServeAuthorizedGenerics(w http.ResponseWriter, r *http.Request) {
	f, ok := h.format(w, r)
	if !ok {
		return
	}

	v, err := h.master.AuthorizedGenerics()
	if err != nil {
		h.respondWithFailure(w, r, err)
		return
	}

	if f == validation.FormatCSV {
		h.respondWithCSV(w, csvexport.AGFileName(v.Updated), func(out io.Writer) error {
			return csvexport.WriteAuthorizedGenerics(out, v.Rows)
		})
		return
	}
	h.RespondWithJSON(w, http.StatusOK, v)
}

// ServeBiosimilars returns the biosimilar list for the query selector.
func (h *HTTPHandlerImpl) ServeBiosimilars(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.selector(w, r)
	if !ok {
		return
	}
	f, ok := h.format(w, r)
	if !ok {
		return
	}

	v, err := h.master.Biosimilars(sel)
	if err != nil {
		h.respondWithFailure(w, r, err)
		return
	}

	if f == validation.FormatCSV {
		h.respondWithCSV(w, csvexport.BSFileName(v.Updated), func(out io.Writer) error {
			return csvexport.WriteBiosimilars(out, v.Rows)
		})
		return
	}
	h.RespondWithJSON(w, http.StatusOK, v)
}

// ServeBiosimilarYears lists the years the biosimilar list supports.
func (h *HTTPHandlerImpl) ServeBiosimilarYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.master.BiosimilarYears()
	if err != nil {
		h.respondWithFailure(w, r, err)
		return
	}
	h.RespondWithJSON(w, http.StatusOK, map[string][]int{"years": years})
}

// ServeFullYear returns the drug master of a fiscal year including rows deleted during it.
func (h *HTTPHandlerImpl) ServeFullYear(w http.ResponseWriter, r *http.Request) {
	year, err := h.validator.ValidateYear(chi.URLParam(r, "year"))
	if err != nil {
		logging.Warn("Unusual user input", "year", chi.URLParam(r, "year"))
		h.respondWithFailure(w, r, err)
		return
	}
	f, ok := h.format(w, r)
	if !ok {
		return
	}

	t, err := h.master.FullYearView(year)
	if err != nil {
		h.respondWithFailure(w, r, err)
		return
	}
	h.respondWithTable(w, f, t)
}

// ServeAugmentedCode returns the drug master with YJ codes attached.
func (h *HTTPHandlerImpl) ServeAugmentedCode(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.selector(w, r)
	if !ok {
		return
	}
	f, ok := h.format(w, r)
	if !ok {
		return
	}

	t, err := h.master.AugmentedCodeView(sel)
	if err != nil {
		h.respondWithFailure(w, r, err)
		return
	}
	h.respondWithTable(w, f, t)
}

// HealthCheck reports catalog freshness and process statistics.
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, code := h.health.HealthCheck()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h.RespondWithJSON(w, code, HealthResponse{
		Status: status,
		Data:   data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc":       humanize.Bytes(m.Alloc),
				"total_alloc": humanize.Bytes(m.TotalAlloc),
				"sys":         humanize.Bytes(m.Sys),
				"num_gc":      m.NumGC,
			},
		},
	})
}
