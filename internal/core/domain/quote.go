package domain

// ManualQuoteItem is a line of an ad-hoc quote. Price is the quoted unit
// price and never writes back to the catalog.
type ManualQuoteItem struct {
	Product  EquipmentItem `json:"product"`
	Quantity int           `json:"quantity"`
	Price    int64         `json:"price"`
}

type QuoteLine struct {
	EquipmentID string `json:"equipmentId"`
	Name        string `json:"name"`
	Details     string `json:"details,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	Subtotal    int64  `json:"subtotal"`
}

type Quote struct {
	CustomerName string      `json:"customerName"`
	Destination  string      `json:"destination"`
	Lines        []QuoteLine `json:"lineItems"`
	ItemCount    int         `json:"itemCount"`
	Total        int64       `json:"total"`
}
