package domain

import "time"

type Availability string

const (
	AvailabilityInStock     Availability = "in-stock"
	AvailabilityMadeToOrder Availability = "made-to-order"
)

type EquipmentItem struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Category           string       `json:"category"`
	Price              int64        `json:"price"`
	AvailabilityStatus Availability `json:"availabilityStatus"`
	ImageURLs          []string     `json:"imageUrls,omitempty"`
	Version            int          `json:"version,omitempty"` // optimistic locking
	UpdatedAt          time.Time    `json:"updatedAt,omitzero"`
}

// MadeToOrder reports whether the item bills under the 50/50 production
// policy. Anything else, including an unknown status, bills as in-stock.
func (e EquipmentItem) MadeToOrder() bool {
	return e.AvailabilityStatus == AvailabilityMadeToOrder
}

// Clone copies the image list so the result can be modified freely.
func (e EquipmentItem) Clone() EquipmentItem {
	if e.ImageURLs != nil {
		e.ImageURLs = append([]string(nil), e.ImageURLs...)
	}
	return e
}
