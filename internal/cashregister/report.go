package cashregister

import (
	"context"
	"fmt"
	"time"

	"kasa-backend/internal/money"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

const maxReportBuckets = 366

// ReportQuery selects the buckets of a cash difference report. A nil
// BranchID covers every branch; Count 0 picks the period default.
type ReportQuery struct {
	BranchID *uint
	Period   Period
	Count    int
}

type DifferenceBucket struct {
	Label    string      `json:"label"` // first day of the bucket
	Sessions int         `json:"sessions"`
	Shortage money.Money `json:"shortage"` // sum of negative differences
	Surplus  money.Money `json:"surplus"`
	Net      money.Money `json:"net"`
}

type DifferenceTotals struct {
	Sessions int         `json:"sessions"`
	Shortage money.Money `json:"shortage"`
	Surplus  money.Money `json:"surplus"`
	Net      money.Money `json:"net"`
}

type DifferenceReport struct {
	BranchID *uint              `json:"branch_id"`
	Period   Period             `json:"period"`
	From     string             `json:"from"`
	To       string             `json:"to"`
	Buckets  []DifferenceBucket `json:"buckets"`
	Totals   DifferenceTotals   `json:"totals"`
}

func defaultCount(p Period) int {
	switch p {
	case PeriodWeekly:
		return 8
	case PeriodMonthly:
		return 12
	default:
		return 7
	}
}

// bucketStart truncates t to the start of its day, Monday-based week or month.
func bucketStart(p Period, t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch p {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

func nextBucket(p Period, t time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return t.AddDate(0, 0, 7)
	case PeriodMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// CashDifferenceReport buckets the cash differences of closed sessions by
// close time. The last bucket is the one containing now.
func (s *Service) CashDifferenceReport(ctx context.Context, q ReportQuery) (*DifferenceReport, error) {
	if q.Period == "" {
		q.Period = PeriodDaily
	}
	switch q.Period {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
	default:
		return nil, newError(CodeInvalidInput, "period", "period must be daily, weekly or monthly")
	}
	if q.Count == 0 {
		q.Count = defaultCount(q.Period)
	}
	if q.Count < 0 || q.Count > maxReportBuckets {
		return nil, newError(CodeInvalidInput, "count", fmt.Sprintf("count must be between 1 and %d", maxReportBuckets))
	}

	now := s.now()
	starts := make([]time.Time, q.Count)
	starts[q.Count-1] = bucketStart(q.Period, now)
	for i := q.Count - 2; i >= 0; i-- {
		switch q.Period {
		case PeriodWeekly:
			starts[i] = starts[i+1].AddDate(0, 0, -7)
		case PeriodMonthly:
			starts[i] = starts[i+1].AddDate(0, -1, 0)
		default:
			starts[i] = starts[i+1].AddDate(0, 0, -1)
		}
	}
	from := starts[0]
	to := nextBucket(q.Period, starts[q.Count-1])

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.repo.ListClosedDifferences(ctx, q.BranchID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list closed differences: %w", err)
	}

	buckets := make([]DifferenceBucket, q.Count)
	index := make(map[string]int, q.Count)
	for i, st := range starts {
		label := st.Format("2006-01-02")
		buckets[i] = DifferenceBucket{Label: label}
		index[label] = i
	}

	report := &DifferenceReport{
		BranchID: q.BranchID,
		Period:   q.Period,
		From:     from.Format("2006-01-02"),
		To:       to.AddDate(0, 0, -1).Format("2006-01-02"),
	}

	for _, r := range rows {
		i, ok := index[bucketStart(q.Period, r.ClosedAt.In(now.Location())).Format("2006-01-02")]
		if !ok {
			continue
		}
		b := &buckets[i]
		b.Sessions++
		b.Net = b.Net.Add(r.CashDifference)
		if r.CashDifference.IsNegative() {
			b.Shortage = b.Shortage.Add(r.CashDifference)
		} else {
			b.Surplus = b.Surplus.Add(r.CashDifference)
		}
	}

	for _, b := range buckets {
		report.Totals.Sessions += b.Sessions
		report.Totals.Shortage = report.Totals.Shortage.Add(b.Shortage)
		report.Totals.Surplus = report.Totals.Surplus.Add(b.Surplus)
		report.Totals.Net = report.Totals.Net.Add(b.Net)
	}
	report.Buckets = buckets

	return report, nil
}
