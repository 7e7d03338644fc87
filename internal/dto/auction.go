package dto

import "time"

// AuctionResponse represents an auction as exposed via transport layers.
type AuctionResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Status           string    `json:"status"`
	DefaultCurrency  string    `json:"defaultCurrency"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	AutoExtension    bool      `json:"autoExtension"`
	ExtensionMinutes int       `json:"extensionMinutes"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
