package models

import "time"

// --- Forecast ---

// Identity names the store/item pair a forecast is requested for.
type Identity struct {
	StoreName string `json:"store_name"`
	ItemName  string `json:"item_name"`
}

// Resolved reports whether both names are present.
func (i Identity) Resolved() bool {
	return i.StoreName != "" && i.ItemName != ""
}

// ForecastRequest is the body of POST /forecast. Regressor vectors are sent as 0/1.
type ForecastRequest struct {
	HorizonDays int    `json:"forecast_days"`
	IsHoliday   []int  `json:"is_holiday"`
	OnPromotion []int  `json:"onpromotion"`
	StoreName   string `json:"store_name"`
	ItemName    string `json:"item_name"`
}

// Suggestion is a free-text recommendation returned alongside a forecast.
type Suggestion struct {
	Type       string  `json:"type,omitempty"`
	Message    string  `json:"message"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ForecastResult holds the quantile series for one forecast. Index i is day i+1 ahead.
type ForecastResult struct {
	P10         []float64    `json:"p10"`
	P50         []float64    `json:"p50"`
	P90         []float64    `json:"p90"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// QuantileViolation records a day where p10 <= p50 <= p90 does not hold.
type QuantileViolation struct {
	Day int     `json:"day"`
	P10 float64 `json:"p10"`
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
}

// Violations lists every day whose quantiles are out of order.
func (r *ForecastResult) Violations() []QuantileViolation {
	var out []QuantileViolation
	for i := range r.P50 {
		if i >= len(r.P10) || i >= len(r.P90) {
			break
		}
		if r.P10[i] > r.P50[i] || r.P50[i] > r.P90[i] {
			out = append(out, QuantileViolation{Day: i + 1, P10: r.P10[i], P50: r.P50[i], P90: r.P90[i]})
		}
	}
	return out
}

// Clone returns a deep copy so published snapshots never share backing arrays.
func (r *ForecastResult) Clone() *ForecastResult {
	if r == nil {
		return nil
	}
	return &ForecastResult{
		P10:         append([]float64(nil), r.P10...),
		P50:         append([]float64(nil), r.P50...),
		P90:         append([]float64(nil), r.P90...),
		Suggestions: append([]Suggestion(nil), r.Suggestions...),
	}
}

// SavedForecast is one entry of GET /predictions.
type SavedForecast struct {
	ItemName    string         `json:"item_name"`
	StoreName   string         `json:"store_name"`
	Forecast    ForecastResult `json:"forecast"`
	Suggestions []Suggestion   `json:"suggestions"`
	Timestamp   string         `json:"timestamp"`
	Filename    string         `json:"filename"`
}

// UploadReceipt is the answer to a history upload.
type UploadReceipt struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	RowCount int    `json:"row_count"`
}

// InsightsHandoff packages a Ready forecast for the downstream insights view.
type InsightsHandoff struct {
	Result         ForecastResult `json:"forecast"`
	StoreName      string         `json:"store_name"`
	ItemName       string         `json:"item_name"`
	History        []float64      `json:"history"`
	Suggestions    []Suggestion   `json:"suggestions,omitempty"`
	Narrative      string         `json:"narrative,omitempty"`
	NarrativeError string         `json:"narrative_error,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
}
