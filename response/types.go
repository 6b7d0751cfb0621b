package response

/* ========================================================================
 * Response types
 * ======================================================================== */

// Result is the standard API response envelope.
type Result struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

// PageResult is the envelope payload for paged listings.
type PageResult struct {
	List     interface{} `json:"list"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}
