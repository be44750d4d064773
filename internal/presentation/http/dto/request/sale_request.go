package request

// DateRangeRequest carries optional YYYY-MM-DD bounds
type DateRangeRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

// ListSalesRequest represents sale listing parameters
type ListSalesRequest struct {
	DateRangeRequest
	CashierID string `form:"cashier_id"`
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
}
