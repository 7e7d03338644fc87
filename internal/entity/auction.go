package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	StatusDraft     AuctionStatus = "draft"
	StatusPublished AuctionStatus = "published"
	StatusActive    AuctionStatus = "Active"
	StatusPaused    AuctionStatus = "Paused"
	StatusEnded     AuctionStatus = "Ended"
)

// CanTransitionTo reports whether the lifecycle permits moving to next.
// Transitions are monotonic except for the Paused/Active toggle; Ended is terminal.
func (s AuctionStatus) CanTransitionTo(next AuctionStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusPublished
	case StatusPublished:
		return next == StatusActive || next == StatusEnded
	case StatusActive:
		return next == StatusPaused || next == StatusEnded
	case StatusPaused:
		return next == StatusActive || next == StatusEnded
	default:
		return false
	}
}

// AcceptsBids reports whether the bidding window is open. The sweep may flip
// published to Active mid-window; both states accept bids.
func (s AuctionStatus) AcceptsBids() bool {
	return s == StatusPublished || s == StatusActive
}

// Auction is the aggregate root for a competitive-bidding event. Auctions are
// never deleted, only Ended.
type Auction struct {
	bun.BaseModel `bun:"table:auctions"`

	ID                    string        `bun:",pk"`
	Title                 string        `bun:"title"`
	Status                AuctionStatus `bun:"status"`
	DefaultCurrency       string        `bun:"default_currency"`
	StartTime             time.Time     `bun:"start_time,nullzero"`
	EndTime               time.Time     `bun:"end_time,nullzero"`
	AutoExtension         bool          `bun:"auto_extension"`
	ExtensionMinutes      int           `bun:"extension_minutes"`
	InvitedSupplierEmails []string      `bun:"invited_supplier_emails,array"`
	CreatedAt             time.Time     `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time     `bun:"updated_at,nullzero"`
}

// IsInvited reports whether the supplier email is on the invitation list.
func (a *Auction) IsInvited(email string) bool {
	for _, invited := range a.InvitedSupplierEmails {
		if invited == email {
			return true
		}
	}
	return false
}
