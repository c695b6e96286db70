package models

// PaginatedPredictionsResponse is the response structure for paginated saved forecasts.
type PaginatedPredictionsResponse struct {
	Data       []SavedForecast `json:"data"`
	Pagination PaginationInfo  `json:"pagination"`
}

// PaginationInfo holds metadata for paginated responses.
type PaginationInfo struct {
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
}
