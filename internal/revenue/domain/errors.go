package domain

import "errors"

var (
	ErrNegativeAmount     = errors.New("negative_amount")
	ErrAmountTooLarge     = errors.New("amount_too_large")
	ErrInvalidRate        = errors.New("invalid_commission_rate")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidPeriod      = errors.New("invalid_period")
	ErrInvalidGranularity = errors.New("invalid_granularity")
)
