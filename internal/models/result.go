package models

// ItemHit is a line item found by search, with the requisition it belongs to.
type ItemHit struct {
	Item   PRItem  `json:"item"`
	PRID   string  `json:"pr_id"`
	PRName string  `json:"pr_name"`
	Score  float64 `json:"score,omitempty"`
}

// ItemSearchResponse is the response for an item search request.
type ItemSearchResponse struct {
	Query     string     `json:"query"`
	Hits      []*ItemHit `json:"hits"`
	Total     int        `json:"total"`
	Ranked    bool       `json:"ranked"`
	QueryTime int64      `json:"query_time_ms"`
}
