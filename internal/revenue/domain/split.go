package domain

import (
	"math"

	"github.com/smallbiznis/coursemart/internal/config"
)

// MaxSplitAmount is the largest amount whose split cannot overflow int64.
const MaxSplitAmount = (math.MaxInt64 - config.BasisPointsDenominator/2) / config.BasisPointsDenominator

// RevenueRecord splits an amount between the platform and the creator.
// PlatformShare + CreatorShare == TotalAmount always holds.
type RevenueRecord struct {
	TotalAmount   int64 `json:"total_amount"`
	PlatformShare int64 `json:"platform_share"`
	CreatorShare  int64 `json:"creator_share"`
}

// Split applies the commission rate in basis points, rounding the platform
// share half up in integer arithmetic. The creator share is the remainder.
func Split(amount int64, bps int64) (RevenueRecord, error) {
	if amount < 0 {
		return RevenueRecord{}, ErrNegativeAmount
	}
	if amount > MaxSplitAmount {
		return RevenueRecord{}, ErrAmountTooLarge
	}
	if bps < 0 || bps > config.BasisPointsDenominator {
		return RevenueRecord{}, ErrInvalidRate
	}
	platform := (amount*bps + config.BasisPointsDenominator/2) / config.BasisPointsDenominator
	return RevenueRecord{
		TotalAmount:   amount,
		PlatformShare: platform,
		CreatorShare:  amount - platform,
	}, nil
}

// Add sums two records component-wise. Aggregates are built only this way,
// never by re-splitting a total.
func (r RevenueRecord) Add(other RevenueRecord) RevenueRecord {
	return RevenueRecord{
		TotalAmount:   r.TotalAmount + other.TotalAmount,
		PlatformShare: r.PlatformShare + other.PlatformShare,
		CreatorShare:  r.CreatorShare + other.CreatorShare,
	}
}
