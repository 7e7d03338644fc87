package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidRequest is the payload for submitting or revising a bid. Amount and the
// cost components are expressed in the request currency; the fob/tax/duty
// components are flat amounts while carton multiplies the unit price.
type BidRequest struct {
	LotID      string          `json:"lotId"`
	SupplierID string          `json:"supplierId"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Fob        decimal.Decimal `json:"fob"`
	Carton     decimal.Decimal `json:"carton"`
	Tax        decimal.Decimal `json:"tax"`
	Duty       decimal.Decimal `json:"duty"`
}

// BidResponse represents a standing bid as exposed via transport layers.
// Amount is normalized to the reference currency; originalAmount keeps the
// supplier-facing value.
type BidResponse struct {
	ID             string          `json:"id"`
	AuctionID      string          `json:"auctionId"`
	LotID          string          `json:"lotId"`
	SupplierID     string          `json:"supplierId"`
	Amount         decimal.Decimal `json:"amount"`
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	Currency       string          `json:"currency"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	FloorPrice     decimal.Decimal `json:"floorPrice"`
	CeilingPrice   decimal.Decimal `json:"ceilingPrice"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// BidHistoryResponse is one ledger row.
type BidHistoryResponse struct {
	ID             string          `json:"id"`
	AuctionID      string          `json:"auctionId"`
	LotID          string          `json:"lotId"`
	SupplierID     string          `json:"supplierId"`
	SupplierName   string          `json:"supplierName"`
	Amount         decimal.Decimal `json:"amount"`
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	Currency       string          `json:"currency"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ConstraintsResponse describes the legal bid band for a lot in the
// requested currency.
type ConstraintsResponse struct {
	Direction          string          `json:"direction"`
	Currency           string          `json:"currency"`
	Floor              decimal.Decimal `json:"floor"`
	Ceiling            decimal.Decimal `json:"ceiling"`
	QualificationPrice decimal.Decimal `json:"qualificationPrice"`
}
