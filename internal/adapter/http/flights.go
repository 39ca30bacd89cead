package http

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bas-flights/telegram-etl/internal/adapter/sqlite"
	"github.com/bas-flights/telegram-etl/internal/adapter/xlsx"
	"github.com/bas-flights/telegram-etl/internal/domain"
	"github.com/bas-flights/telegram-etl/internal/ingest"
)

const (
	dateParam       = "2006-01-02"
	multipartMemory = 32 << 20
)

var workbookExtensions = map[string]bool{".xlsx": true, ".xlsm": true}

// errBadRequest marks client mistakes detected before parsing starts.
var errBadRequest = errors.New("bad request")

func (s *Server) handleUploadTelegrams(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	data, err := s.readUpload(r)
	if err != nil {
		s.writeUploadError(w, err)
		return
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		writeError(w, http.StatusBadRequest, "empty upload")
		return
	}

	report, err := s.deps.Ingester.IngestText(r.Context(), data)
	if err != nil {
		s.writeUploadError(w, err)
		return
	}
	s.storeAndRespond(w, r, report)
}

func (s *Server) handleUploadExcel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeUploadError(w, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeUploadError(w, fmt.Errorf("%w: file field required", errBadRequest))
		return
	}
	defer file.Close()

	if !workbookExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		writeError(w, http.StatusBadRequest, "only .xlsx and .xlsm workbooks are supported")
		return
	}

	report, err := s.deps.Ingester.IngestWorkbook(r.Context(), file)
	if err != nil {
		s.writeUploadError(w, err)
		return
	}
	s.storeAndRespond(w, r, report)
}

// readUpload returns the "file" part of a multipart upload, or the raw body.
func (s *Server) readUpload(r *http.Request) ([]byte, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return io.ReadAll(r.Body)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: file field required", errBadRequest)
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (s *Server) storeAndRespond(w http.ResponseWriter, r *http.Request, report ingest.Report) {
	if err := s.deps.Loader.LoadBatch(r.Context(), report.Flights); err != nil {
		s.logger.Error("store flights failed", "batch_id", report.BatchID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store flights")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, domain.ErrUndecodableText), errors.Is(err, xlsx.ErrUnreadableWorkbook):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Warn("upload rejected", "error", err)
		writeError(w, http.StatusBadRequest, "could not read upload: "+err.Error())
	}
}

func (s *Server) handleListFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := parsePeriod(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	skip, err := intParam(q.Get("skip"), 0, 0, math.MaxInt, "skip")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(q.Get("limit"), sqlite.DefaultListLimit, 1, sqlite.MaxListLimit, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flights, err := s.deps.Flights.List(r.Context(), sqlite.Filter{
		Start:  start,
		End:    end,
		Region: strings.TrimSpace(q.Get("region")),
		Offset: skip,
		Limit:  limit,
	})
	if err != nil {
		s.logger.Error("list flights failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list flights")
		return
	}
	writeJSON(w, http.StatusOK, flights)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := parsePeriod(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.deps.Flights.Statistics(r.Context(), start, end)
	if err != nil {
		s.logger.Error("flight statistics failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRegionRating(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := parsePeriod(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(q.Get("limit"), sqlite.DefaultRatingLimit, 1, sqlite.MaxRatingLimit, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rating, err := s.deps.Flights.RegionRating(r.Context(), start, end, limit)
	if err != nil {
		s.logger.Error("region rating failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to rank regions")
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

func (s *Server) handleRegionStatistics(w http.ResponseWriter, r *http.Request) {
	region, err := url.PathUnescape(chi.URLParam(r, "region"))
	if err != nil || strings.TrimSpace(region) == "" {
		writeError(w, http.StatusBadRequest, "invalid region")
		return
	}
	q := r.URL.Query()
	start, end, err := parsePeriod(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.deps.Flights.RegionStatistics(r.Context(), strings.TrimSpace(region), start, end)
	if err != nil {
		s.logger.Error("region statistics failed", "region", region, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute region statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleReport serves the JSON flight report. The region parameter may be
// repeated to restrict the report to several departure regions.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end, err := parsePeriod(q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var regions []string
	for _, v := range q["region"] {
		if v = strings.TrimSpace(v); v != "" {
			regions = append(regions, v)
		}
	}

	report, err := s.deps.Flights.Report(r.Context(), start, end, regions)
	if err != nil {
		s.logger.Error("flight report failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parsePeriod(startParam, endParam string) (start, end *time.Time, err error) {
	if start, err = dateQuery(startParam, "start_date"); err != nil {
		return nil, nil, err
	}
	if end, err = dateQuery(endParam, "end_date"); err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, errors.New("end_date precedes start_date")
	}
	return start, end, nil
}

func dateQuery(v, name string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateParam, v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: want YYYY-MM-DD", name)
	}
	return &t, nil
}

func intParam(v string, fallback, lo, hi int, name string) (int, error) {
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", name, lo, hi)
	}
	return n, nil
}
