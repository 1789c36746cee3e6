package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storoescobar/commercial-events-calendar/internal/coverage"
	"github.com/storoescobar/commercial-events-calendar/internal/export"
	"github.com/storoescobar/commercial-events-calendar/internal/ingest"
	"github.com/storoescobar/commercial-events-calendar/internal/models"
)

// ---- Health ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ---- Ingestion ----

// ingestRequest is the JSON body shape; multipart form uploads carry
// the same tables as file parts named events, campaigns, stores and
// targets.
type ingestRequest struct {
	EventsCSV    string   `json:"events_csv"`
	CampaignsCSV string   `json:"campaigns_csv"`
	StoresCSV    string   `json:"stores_csv"`
	TargetsCSV   string   `json:"targets_csv,omitempty"`
	ScopeFilter  []string `json:"scope_filter,omitempty"`
}

type ingestResponse struct {
	BatchID  string                `json:"batch_id"`
	Adopted  bool                  `json:"adopted"`
	Result   ingest.Result         `json:"validation"`
	Snapshot coverage.RecordResult `json:"snapshot"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	batchID := uuid.New().String()
	ds, scope, err := parseTables(r)
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := ingest.Validate(ds)
	if s.metrics != nil {
		status := "adopted"
		if !result.OK() {
			status = "rejected"
		}
		s.metrics.RecordIngest(status, len(result.HardErrors), len(result.Warnings))
	}
	if !result.OK() {
		s.logger.Warn("ingestion batch rejected",
			zap.String("batch_id", batchID),
			zap.Int("hard_errors", len(result.HardErrors)),
		)
		s.jsonResponseStatus(w, http.StatusUnprocessableEntity, ingestResponse{
			BatchID: batchID,
			Result:  result,
		})
		return
	}

	now := time.Now().UTC()
	doc := &models.Document{
		Version:     models.DocumentVersion,
		SavedAt:     now,
		ScopeFilter: scope,
		Dataset:     ds,
	}
	if err := s.documents.Save(r.Context(), doc); err != nil {
		s.logger.Error("failed to adopt batch", zap.String("batch_id", batchID), zap.Error(err))
		s.errorResponse(w, "failed to persist batch", http.StatusInternalServerError)
		return
	}

	current := coverage.ComputeEventMetrics(ds.Events, ds.Campaigns, now, datasetOptions(doc, ""))
	snapRes := s.history.Record(r.Context(), current, now)

	s.logger.Info("ingestion batch adopted",
		zap.String("batch_id", batchID),
		zap.Int("events", len(ds.Events)),
		zap.Int("campaigns", len(ds.Campaigns)),
		zap.Int("stores", len(ds.Stores)),
		zap.Int("targets", len(ds.Targets)),
		zap.Int("warnings", len(result.Warnings)),
	)
	s.jsonResponse(w, ingestResponse{
		BatchID:  batchID,
		Adopted:  true,
		Result:   result,
		Snapshot: snapRes,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ds, _, err := parseTables(r)
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.jsonResponse(w, ingest.Validate(ds))
}

// ---- Event metrics ----

func (s *Server) handleEventMetrics(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.currentDocument(w, r)
	if !ok {
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		s.errorResponse(w, "invalid as_of date", http.StatusBadRequest)
		return
	}

	start := time.Now()
	rows := coverage.ComputeEventMetrics(
		doc.Dataset.Events, doc.Dataset.Campaigns, asOf,
		datasetOptions(doc, r.URL.Query().Get("scope")),
	)
	if s.metrics != nil {
		s.metrics.RecordCompute("events", time.Since(start))
	}
	s.jsonResponse(w, rows)
}

// handleEventByID routes /v1/events/{id}/{summary|drilldown|deltas}.
func (s *Server) handleEventByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/events/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		s.errorResponse(w, "not found", http.StatusNotFound)
		return
	}
	eventID, action := parts[0], parts[1]

	doc, ok := s.currentDocument(w, r)
	if !ok {
		return
	}
	event, found := findEvent(doc.Dataset.Events, eventID)
	if !found {
		s.errorResponse(w, "unknown event", http.StatusNotFound)
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		s.errorResponse(w, "invalid as_of date", http.StatusBadRequest)
		return
	}
	opts := datasetOptions(doc, r.URL.Query().Get("scope"))

	start := time.Now()
	switch action {
	case "summary":
		summary := coverage.Summarize(event, doc.Dataset.Campaigns, asOf, opts)
		if s.metrics != nil {
			s.metrics.RecordCompute("summary", time.Since(start))
		}
		s.jsonResponse(w, summary)

	case "drilldown":
		level, err := levelParam(r)
		if err != nil {
			s.errorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		d := coverage.NewDrilldown(event, doc.Dataset.Campaigns, asOf, opts)
		rows, err := d.Resolve(level)
		if err != nil {
			s.errorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		if s.metrics != nil {
			s.metrics.RecordCompute("drilldown", time.Since(start))
		}
		s.jsonResponse(w, rows)

	case "deltas":
		current := coverage.ComputeEventMetrics([]models.Event{event}, doc.Dataset.Campaigns, asOf, opts)
		deltas := s.history.Deltas(r.Context(), current, time.Now().UTC())
		if s.metrics != nil {
			s.metrics.RecordCompute("deltas", time.Since(start))
		}
		s.jsonResponse(w, deltas)

	default:
		s.errorResponse(w, "not found", http.StatusNotFound)
	}
}

// ---- Export ----

func (s *Server) handleExportMetrics(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.currentDocument(w, r)
	if !ok {
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		s.errorResponse(w, "invalid as_of date", http.StatusBadRequest)
		return
	}
	rows := coverage.ComputeEventMetrics(
		doc.Dataset.Events, doc.Dataset.Campaigns, asOf,
		datasetOptions(doc, r.URL.Query().Get("scope")),
	)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="event_metrics.csv"`)
	if err := export.WriteEventMetrics(w, rows); err != nil {
		s.logger.Error("metrics export failed", zap.Error(err))
	}
}

func (s *Server) handleExportGaps(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		s.errorResponse(w, "event_id is required", http.StatusBadRequest)
		return
	}
	doc, ok := s.currentDocument(w, r)
	if !ok {
		return
	}
	event, found := findEvent(doc.Dataset.Events, eventID)
	if !found {
		s.errorResponse(w, "unknown event", http.StatusNotFound)
		return
	}
	asOf, err := asOfParam(r)
	if err != nil {
		s.errorResponse(w, "invalid as_of date", http.StatusBadRequest)
		return
	}
	d := coverage.NewDrilldown(event, doc.Dataset.Campaigns, asOf, datasetOptions(doc, r.URL.Query().Get("scope")))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="gap_stores.csv"`)
	if err := export.WriteGapStores(w, eventID, d.GapStores()); err != nil {
		s.logger.Error("gap export failed", zap.Error(err))
	}
}

// ---- Helpers ----

// parseTables reads the four tables from a multipart upload or a JSON
// body, together with the requested scope filter.
func parseTables(r *http.Request) (models.Dataset, []string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		return parseMultipartTables(r)
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.Dataset{}, nil, fmt.Errorf("invalid json: %w", err)
	}
	ds, err := readDataset(req.EventsCSV, req.CampaignsCSV, req.StoresCSV, req.TargetsCSV)
	return ds, req.ScopeFilter, err
}

func parseMultipartTables(r *http.Request) (models.Dataset, []string, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return models.Dataset{}, nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	read := func(field string, required bool) (string, error) {
		file, _, err := r.FormFile(field)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) && !required {
				return "", nil
			}
			return "", fmt.Errorf("missing file %q", field)
		}
		defer func(f multipart.File) { _ = f.Close() }(file)
		data, err := io.ReadAll(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %q: %w", field, err)
		}
		return string(data), nil
	}

	eventsCSV, err := read("events", true)
	if err != nil {
		return models.Dataset{}, nil, err
	}
	campaignsCSV, err := read("campaigns", true)
	if err != nil {
		return models.Dataset{}, nil, err
	}
	storesCSV, err := read("stores", true)
	if err != nil {
		return models.Dataset{}, nil, err
	}
	targetsCSV, err := read("targets", false)
	if err != nil {
		return models.Dataset{}, nil, err
	}

	var scope []string
	for _, id := range strings.Split(r.FormValue("scope_filter"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			scope = append(scope, id)
		}
	}

	ds, err := readDataset(eventsCSV, campaignsCSV, storesCSV, targetsCSV)
	return ds, scope, err
}

func readDataset(eventsCSV, campaignsCSV, storesCSV, targetsCSV string) (models.Dataset, error) {
	var ds models.Dataset
	var err error
	if ds.Events, err = ingest.ReadEvents(strings.NewReader(eventsCSV)); err != nil {
		return ds, err
	}
	if ds.Campaigns, err = ingest.ReadCampaigns(strings.NewReader(campaignsCSV)); err != nil {
		return ds, err
	}
	if ds.Stores, err = ingest.ReadStores(strings.NewReader(storesCSV)); err != nil {
		return ds, err
	}
	if strings.TrimSpace(targetsCSV) != "" {
		if ds.Targets, err = ingest.ReadTargets(strings.NewReader(targetsCSV)); err != nil {
			return ds, err
		}
	}
	return ds, nil
}

// datasetOptions builds the engine options for the adopted dataset. A
// non-empty scope query overrides the stored scope filter selection.
func datasetOptions(doc *models.Document, scopeQuery string) coverage.Options {
	opts := coverage.Options{
		StoresByID: doc.Dataset.StoresByID(),
		Targets:    doc.Dataset.Targets,
	}
	ids := doc.ScopeFilter
	if scopeQuery != "" {
		ids = nil
		for _, id := range strings.Split(scopeQuery, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) > 0 {
		opts.AllowedStoreIDs = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			opts.AllowedStoreIDs[id] = struct{}{}
		}
	}
	return opts
}

// currentDocument loads the adopted dataset, answering 409 when no
// batch has been ingested yet.
func (s *Server) currentDocument(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	doc, err := s.documents.Load(r.Context())
	if err != nil {
		s.logger.Error("failed to load document", zap.Error(err))
		s.errorResponse(w, "failed to load session state", http.StatusInternalServerError)
		return nil, false
	}
	if doc == nil {
		s.errorResponse(w, "no dataset ingested", http.StatusConflict)
		return nil, false
	}
	return doc, true
}

func asOfParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return models.ParseDate(raw)
}

// levelParam builds the tagged drilldown level from query parameters.
func levelParam(r *http.Request) (coverage.Level, error) {
	q := r.URL.Query()
	switch q.Get("level") {
	case "city":
		return coverage.CityLevel{}, nil
	case "commercial":
		if q.Get("city") == "" {
			return nil, fmt.Errorf("city is required for commercial level")
		}
		return coverage.CommercialLevel{City: q.Get("city")}, nil
	case "brand":
		return coverage.BrandLevel{City: q.Get("city"), Commercial: q.Get("commercial")}, nil
	case "store":
		return coverage.StoreLevel{
			City:       q.Get("city"),
			Commercial: q.Get("commercial"),
			Brand:      q.Get("brand"),
			OnlyGaps:   q.Get("only_gaps") == "true",
		}, nil
	case "campaign":
		if q.Get("store_id") == "" {
			return nil, fmt.Errorf("store_id is required for campaign level")
		}
		return coverage.CampaignLevel{StoreID: q.Get("store_id")}, nil
	default:
		return nil, fmt.Errorf("unknown drilldown level %q", q.Get("level"))
	}
}

func findEvent(events []models.Event, id string) (models.Event, bool) {
	for _, e := range events {
		if e.ID == id {
			return e, true
		}
	}
	return models.Event{}, false
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	s.jsonResponseStatus(w, http.StatusOK, data)
}

func (s *Server) jsonResponseStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
