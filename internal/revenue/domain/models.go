package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PurchaseRow is a completed purchase as read for revenue reporting.
type PurchaseRow struct {
	PurchaseID  snowflake.ID `gorm:"column:purchase_id"`
	CourseID    snowflake.ID `gorm:"column:course_id"`
	CourseTitle string       `gorm:"column:course_title"`
	CreatorID   snowflake.ID `gorm:"column:creator_id"`
	AccountID   snowflake.ID `gorm:"column:account_id"`
	Amount      int64        `gorm:"column:amount"`
	Currency    string       `gorm:"column:currency"`
	// CommissionBPS is the rate captured when the purchase was recorded.
	CommissionBPS int64     `gorm:"column:commission_bps"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

type PurchaseRevenue struct {
	PurchaseID  snowflake.ID `json:"purchase_id"`
	CourseID    snowflake.ID `json:"course_id"`
	CourseTitle string       `json:"course_title"`
	CreatorID   snowflake.ID `json:"creator_id"`
	Currency    string       `json:"currency"`
	CreatedAt   time.Time    `json:"created_at"`
	RevenueRecord
}

type CourseRevenue struct {
	CourseID    snowflake.ID `json:"course_id"`
	CourseTitle string       `json:"course_title"`
	CreatorID   snowflake.ID `json:"creator_id"`
	Currency    string       `json:"currency"`
	Purchases   int64        `json:"purchases"`
	RevenueRecord
}

type CreatorRevenue struct {
	CreatorID snowflake.ID `json:"creator_id"`
	Currency  string       `json:"currency"`
	Purchases int64        `json:"purchases"`
	RevenueRecord
}

// PeriodRevenue is a UTC day ("2006-01-02") or month ("2006-01") bucket.
type PeriodRevenue struct {
	Period    string `json:"period"`
	Currency  string `json:"currency"`
	Purchases int64  `json:"purchases"`
	RevenueRecord
}

type CurrencyTotal struct {
	Currency  string `json:"currency"`
	Purchases int64  `json:"purchases"`
	RevenueRecord
}

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

func (g Granularity) Layout() (string, bool) {
	switch g {
	case GranularityDay:
		return "2006-01-02", true
	case GranularityMonth:
		return "2006-01", true
	default:
		return "", false
	}
}

// Query narrows an aggregation. From is inclusive and To exclusive.
type Query struct {
	CreatorID string
	CourseID  string
	From      *time.Time
	To        *time.Time
}

// Filter is a resolved Query after access rules have been applied.
type Filter struct {
	CreatorID *snowflake.ID
	CourseID  *snowflake.ID
	From      *time.Time
	To        *time.Time
}
