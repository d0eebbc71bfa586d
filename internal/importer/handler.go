package importer

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/oakline/callbridge/pkg/logging"
)

// AdminHandler triggers import runs over HTTP. The route sits behind admin
// JWT auth; the run executes synchronously and the response carries the
// summary.
type AdminHandler struct {
	importer     *Importer
	logger       *logging.Logger
	lookbackDays int
}

func NewAdminHandler(imp *Importer, lookbackDays int, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return &AdminHandler{importer: imp, logger: logger, lookbackDays: lookbackDays}
}

type importRequest struct {
	Days      int    `json:"days,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// HandleImport runs a backfill for the requested window. Body is optional;
// an empty one imports the configured lookback window ending now.
func (h *AdminHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	end := time.Now().UTC()
	days := req.Days
	if days <= 0 {
		days = h.lookbackDays
	}
	start := end.AddDate(0, 0, -days)
	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			http.Error(w, "invalid start_date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		start = t
	}
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			http.Error(w, "invalid end_date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		end = t.AddDate(0, 0, 1) // inclusive end date
	}
	if !start.Before(end) {
		http.Error(w, "start_date must precede end_date", http.StatusBadRequest)
		return
	}

	summary, err := h.importer.Run(r.Context(), start, end)
	if err != nil {
		h.logger.Error("import run failed", "error", err)
		http.Error(w, "import failed", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		h.logger.Error("failed to encode import summary", "error", err)
	}
}
