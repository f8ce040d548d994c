package domain

import "context"

type Service interface {
	ByPurchase(ctx context.Context, q Query) ([]PurchaseRevenue, error)
	ByCourse(ctx context.Context, q Query) ([]CourseRevenue, error)
	ByCreator(ctx context.Context, q Query) ([]CreatorRevenue, error)
	ByPeriod(ctx context.Context, q Query, granularity Granularity) ([]PeriodRevenue, error)
	PlatformTotal(ctx context.Context, q Query) ([]CurrencyTotal, error)
	// Statement renders a creator's monthly statement as a PDF. month is
	// formatted "2006-01".
	Statement(ctx context.Context, creatorID string, month string) ([]byte, error)
}
