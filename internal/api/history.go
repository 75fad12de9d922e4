package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"sjsage522/pricewatcher/internal/model"
)

const (
	exportSheet      = "Price History"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportFilename   = "price-history.xlsx"
	exportTimeLayout = "2006-01-02 15:04:05"
)

// RecordPriceRequest is the body of POST /api/price-history
type RecordPriceRequest struct {
	URLID string           `json:"urlId"`
	Price *decimal.Decimal `json:"price"`
}

// RecordPriceResponse reports whether a manual price was appended.
type RecordPriceResponse struct {
	Changed bool                     `json:"changed"`
	Entry   *model.PriceHistoryEntry `json:"entry,omitempty"`
}

// ListPriceHistory handles GET /api/price-history?url=
func (s *Server) ListPriceHistory(w http.ResponseWriter, r *http.Request) {
	entries, ok := s.historyFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// RecordPrice handles POST /api/price-history. The price goes through the
// same change detection as a scraped price.
func (s *Server) RecordPrice(w http.ResponseWriter, r *http.Request) {
	var req RecordPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URLID == "" || req.Price == nil {
		writeError(w, "urlId (string) and price (number) are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if _, err := s.store.GetURL(ctx, req.URLID); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	outcome, err := s.tracker.Record(ctx, req.URLID, model.CanonicalPrice{
		BasePrice:  *req.Price,
		TotalPrice: *req.Price,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	status := http.StatusOK
	if outcome.Changed {
		status = http.StatusCreated
	}
	writeJSON(w, status, RecordPriceResponse{Changed: outcome.Changed, Entry: outcome.Entry})
}

// LatestPrice handles GET /api/price-history/latest/{urlID}
func (s *Server) LatestPrice(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.GetLatestPrice(r.Context(), chi.URLParam(r, "urlID"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if entry == nil {
		writeError(w, "No price history found for this url.", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ExportPriceHistory handles GET /api/price-history/export?url= and returns
// the history as an xlsx workbook.
func (s *Server) ExportPriceHistory(w http.ResponseWriter, r *http.Request) {
	entries, ok := s.historyFor(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename))
	if err := writeWorkbook(w, r.URL.Query().Get("url"), entries); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write price history workbook")
	}
}

// historyFor loads the history of the ?url= query parameter, writing the
// error response itself when there is nothing to return.
func (s *Server) historyFor(w http.ResponseWriter, r *http.Request) ([]model.PriceHistoryEntry, bool) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, "url query parameter is required", http.StatusBadRequest)
		return nil, false
	}

	ctx := r.Context()
	rec, err := s.store.GetURLByString(ctx, raw)
	if err != nil {
		s.writeFailure(w, r, err)
		return nil, false
	}

	entries, err := s.store.ListPriceHistory(ctx, rec.ID)
	if err != nil {
		s.writeFailure(w, r, err)
		return nil, false
	}
	if len(entries) == 0 {
		writeError(w, "No price history found for the given url.", http.StatusNotFound)
		return nil, false
	}
	return entries, true
}

func writeWorkbook(w io.Writer, rawURL string, entries []model.PriceHistoryEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"URL", rawURL},
		{"Timestamp", "Price"},
	}
	for _, e := range entries {
		price, _ := e.Price.Float64()
		rows = append(rows, []interface{}{e.Timestamp.UTC().Format(exportTimeLayout), price})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}
