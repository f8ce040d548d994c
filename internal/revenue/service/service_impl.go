package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/coursemart/internal/authorization"
	"github.com/smallbiznis/coursemart/internal/clock"
	"github.com/smallbiznis/coursemart/internal/config"
	"github.com/smallbiznis/coursemart/internal/providers/pdf"
	"github.com/smallbiznis/coursemart/internal/revenue/domain"
	"github.com/smallbiznis/coursemart/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Authz    authorization.Service
	Commerce *config.CommerceConfigHolder
	PDF      pdf.Provider
	Clock    clock.Clock `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	authz    authorization.Service
	commerce *config.CommerceConfigHolder
	pdf      pdf.Provider
	clock    clock.Clock
	printer  *message.Printer
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("revenue.service"),
		repo:     p.Repo,
		authz:    p.Authz,
		commerce: p.Commerce,
		pdf:      p.PDF,
		clock:    clk,
		printer:  message.NewPrinter(language.English),
	}
}

// split is a purchase row paired with its own split. Every aggregate below
// sums these; nothing is re-split after summing.
type split struct {
	row    domain.PurchaseRow
	record domain.RevenueRecord
}

func (s *Service) ByPurchase(ctx context.Context, q domain.Query) ([]domain.PurchaseRevenue, error) {
	splits, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PurchaseRevenue, 0, len(splits))
	for _, item := range splits {
		out = append(out, domain.PurchaseRevenue{
			PurchaseID:    item.row.PurchaseID,
			CourseID:      item.row.CourseID,
			CourseTitle:   item.row.CourseTitle,
			CreatorID:     item.row.CreatorID,
			Currency:      item.row.Currency,
			CreatedAt:     item.row.CreatedAt,
			RevenueRecord: item.record,
		})
	}
	return out, nil
}

func (s *Service) ByCourse(ctx context.Context, q domain.Query) ([]domain.CourseRevenue, error) {
	splits, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	return byCourse(splits), nil
}

func byCourse(splits []split) []domain.CourseRevenue {
	type key struct {
		course   snowflake.ID
		currency string
	}
	index := map[key]int{}
	out := make([]domain.CourseRevenue, 0)
	for _, item := range splits {
		k := key{course: item.row.CourseID, currency: item.row.Currency}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, domain.CourseRevenue{
				CourseID:    item.row.CourseID,
				CourseTitle: item.row.CourseTitle,
				CreatorID:   item.row.CreatorID,
				Currency:    item.row.Currency,
			})
		}
		out[i].Purchases++
		out[i].RevenueRecord = out[i].RevenueRecord.Add(item.record)
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].TotalAmount != out[b].TotalAmount {
			return out[a].TotalAmount > out[b].TotalAmount
		}
		return out[a].CourseID < out[b].CourseID
	})
	return out
}

func (s *Service) ByCreator(ctx context.Context, q domain.Query) ([]domain.CreatorRevenue, error) {
	splits, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	type key struct {
		creator  snowflake.ID
		currency string
	}
	index := map[key]int{}
	out := make([]domain.CreatorRevenue, 0)
	for _, item := range splits {
		k := key{creator: item.row.CreatorID, currency: item.row.Currency}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, domain.CreatorRevenue{
				CreatorID: item.row.CreatorID,
				Currency:  item.row.Currency,
			})
		}
		out[i].Purchases++
		out[i].RevenueRecord = out[i].RevenueRecord.Add(item.record)
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].CreatorID != out[b].CreatorID {
			return out[a].CreatorID < out[b].CreatorID
		}
		return out[a].Currency < out[b].Currency
	})
	return out, nil
}

// ByPeriod buckets purchases by their UTC creation day or month.
func (s *Service) ByPeriod(ctx context.Context, q domain.Query, granularity domain.Granularity) ([]domain.PeriodRevenue, error) {
	layout, ok := granularity.Layout()
	if !ok {
		return nil, domain.ErrInvalidGranularity
	}

	splits, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	type key struct {
		period   string
		currency string
	}
	index := map[key]int{}
	out := make([]domain.PeriodRevenue, 0)
	for _, item := range splits {
		k := key{period: item.row.CreatedAt.UTC().Format(layout), currency: item.row.Currency}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, domain.PeriodRevenue{Period: k.period, Currency: k.currency})
		}
		out[i].Purchases++
		out[i].RevenueRecord = out[i].RevenueRecord.Add(item.record)
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Period != out[b].Period {
			return out[a].Period < out[b].Period
		}
		return out[a].Currency < out[b].Currency
	})
	return out, nil
}

// PlatformTotal sums every completed purchase. Administrators only.
func (s *Service) PlatformTotal(ctx context.Context, q domain.Query) ([]domain.CurrencyTotal, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectPlatform, authorization.ActionPlatformRevenueView); err != nil {
		return nil, err
	}

	filter, err := parseFilter(q)
	if err != nil {
		return nil, err
	}
	splits, err := s.splitRows(ctx, filter)
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	out := make([]domain.CurrencyTotal, 0)
	for _, item := range splits {
		i, ok := index[item.row.Currency]
		if !ok {
			i = len(out)
			index[item.row.Currency] = i
			out = append(out, domain.CurrencyTotal{Currency: item.row.Currency})
		}
		out[i].Purchases++
		out[i].RevenueRecord = out[i].RevenueRecord.Add(item.record)
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Currency < out[b].Currency })
	return out, nil
}

func (s *Service) Statement(ctx context.Context, creatorID string, month string) ([]byte, error) {
	start, err := time.ParseInLocation("2006-01", strings.TrimSpace(month), time.UTC)
	if err != nil {
		return nil, domain.ErrInvalidPeriod
	}
	end := start.AddDate(0, 1, 0)

	q := domain.Query{CreatorID: creatorID, From: &start, To: &end}
	filter, err := s.scope(ctx, q)
	if err != nil {
		return nil, err
	}
	if filter.CreatorID == nil {
		return nil, domain.ErrInvalidID
	}

	splits, err := s.splitRows(ctx, filter)
	if err != nil {
		return nil, err
	}
	courses := byCourse(splits)

	name, err := s.repo.FindDisplayName(ctx, s.db, *filter.CreatorID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = filter.CreatorID.String()
	}

	cfg := s.commerce.Get()
	data := pdf.StatementData{
		CreatorName:    name,
		CreatorID:      filter.CreatorID.String(),
		Period:         start.Format("January 2006"),
		Currency:       cfg.Currency,
		CommissionRate: statementRate(splits, cfg.CommissionBPS),
		GeneratedAt:    s.clock.Now().UTC().Format(time.RFC3339),
		Rows:           make([]pdf.StatementRow, 0, len(courses)),
	}

	totals := map[string]domain.RevenueRecord{}
	currencies := make([]string, 0)
	for _, course := range courses {
		title := course.CourseTitle
		if title == "" {
			title = course.CourseID.String()
		}
		data.Rows = append(data.Rows, pdf.StatementRow{
			CourseTitle: title,
			Purchases:   course.Purchases,
			Gross:       s.formatAmount(course.TotalAmount, course.Currency),
			Commission:  s.formatAmount(course.PlatformShare, course.Currency),
			Payout:      s.formatAmount(course.CreatorShare, course.Currency),
		})
		if _, ok := totals[course.Currency]; !ok {
			currencies = append(currencies, course.Currency)
		}
		totals[course.Currency] = totals[course.Currency].Add(course.RevenueRecord)
	}
	if len(currencies) == 0 {
		currencies = append(currencies, cfg.Currency)
	}
	sort.Strings(currencies)

	gross := make([]string, 0, len(currencies))
	commission := make([]string, 0, len(currencies))
	payout := make([]string, 0, len(currencies))
	for _, currency := range currencies {
		total := totals[currency]
		gross = append(gross, s.formatAmount(total.TotalAmount, currency))
		commission = append(commission, s.formatAmount(total.PlatformShare, currency))
		payout = append(payout, s.formatAmount(total.CreatorShare, currency))
	}
	data.TotalGross = strings.Join(gross, " / ")
	data.TotalCommission = strings.Join(commission, " / ")
	data.TotalPayout = strings.Join(payout, " / ")

	out, err := s.pdf.GenerateStatement(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("render statement: %w", err)
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, q domain.Query) ([]split, error) {
	filter, err := s.scope(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.splitRows(ctx, filter)
}

func (s *Service) splitRows(ctx context.Context, filter domain.Filter) ([]split, error) {
	rows, err := s.repo.ListCompletedPurchases(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	out := make([]split, 0, len(rows))
	for _, row := range rows {
		record, err := domain.Split(row.Amount, row.CommissionBPS)
		if err != nil {
			return nil, fmt.Errorf("split purchase %s: %w", row.PurchaseID, err)
		}
		out = append(out, split{row: row, record: record})
	}
	return out, nil
}

// scope applies the viewer's revenue access. Administrators may look at any
// creator; creators are pinned to themselves.
func (s *Service) scope(ctx context.Context, q domain.Query) (domain.Filter, error) {
	viewer, err := session.RequireViewer(ctx)
	if err != nil {
		return domain.Filter{}, err
	}

	filter, err := parseFilter(q)
	if err != nil {
		return domain.Filter{}, err
	}

	err = s.authz.Authorize(ctx, authorization.ObjectRevenue, authorization.ActionRevenueViewAny)
	switch {
	case err == nil:
		return filter, nil
	case !errors.Is(err, authorization.ErrForbidden):
		return domain.Filter{}, err
	}

	if err := s.authz.Authorize(ctx, authorization.ObjectRevenue, authorization.ActionRevenueViewOwn); err != nil {
		return domain.Filter{}, err
	}
	if filter.CreatorID != nil && *filter.CreatorID != viewer.AccountID {
		return domain.Filter{}, authorization.ErrForbidden
	}
	own := viewer.AccountID
	filter.CreatorID = &own
	return filter, nil
}

func parseFilter(q domain.Query) (domain.Filter, error) {
	var filter domain.Filter
	if raw := strings.TrimSpace(q.CreatorID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.Filter{}, domain.ErrInvalidID
		}
		filter.CreatorID = &id
	}
	if raw := strings.TrimSpace(q.CourseID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.Filter{}, domain.ErrInvalidID
		}
		filter.CourseID = &id
	}
	if q.From != nil && q.To != nil && !q.From.Before(*q.To) {
		return domain.Filter{}, domain.ErrInvalidPeriod
	}
	filter.From = q.From
	filter.To = q.To
	return filter, nil
}

func (s *Service) formatAmount(amount int64, currency string) string {
	return s.printer.Sprintf("%d %s", amount, currency)
}

// statementRate lists every rate the month's purchases were recorded at.
// An empty month shows the rate currently in force.
func statementRate(splits []split, current int64) string {
	seen := map[int64]bool{}
	rates := make([]int64, 0, 1)
	for _, item := range splits {
		if !seen[item.row.CommissionBPS] {
			seen[item.row.CommissionBPS] = true
			rates = append(rates, item.row.CommissionBPS)
		}
	}
	if len(rates) == 0 {
		return formatRate(current)
	}
	sort.Slice(rates, func(a, b int) bool { return rates[a] < rates[b] })
	out := make([]string, 0, len(rates))
	for _, bps := range rates {
		out = append(out, formatRate(bps))
	}
	return strings.Join(out, " / ")
}

func formatRate(bps int64) string {
	return fmt.Sprintf("%d.%02d%%", bps/100, bps%100)
}
