package models

import "time"

// HistoricalSale is the quantity of an item sold on one day, used as forecast history.
type HistoricalSale struct {
	SaleDate     time.Time `json:"saleDate"`
	QuantitySold int64     `json:"quantitySold"`
}
