package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/price-drop-tracker/internal/api/client"
	"github.com/donaldgifford/price-drop-tracker/internal/engine"
	"github.com/donaldgifford/price-drop-tracker/internal/notify"
	domain "github.com/donaldgifford/price-drop-tracker/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func formatPrice(p *int64) string {
	if p == nil {
		return "-"
	}
	return notify.FormatPrice(*p, viper.GetString("currency"))
}

func printSubscriptionsTable(w io.Writer, subs []domain.Subscription) error {
	tw := newTabWriter(w)
	tw.writef("ID\tQUERY\tREFERENCE\tLAST NOTIFIED\tCREATED\n")
	for i := range subs {
		s := &subs[i]
		tw.writef("%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			truncate(s.Query, 40),
			formatPrice(s.ReferencePrice),
			formatPrice(s.LastNotifiedPrice),
			s.CreatedAt.Format(timeLayout),
		)
	}
	return tw.finish()
}

func printSubscriptionDetail(w io.Writer, s *domain.Subscription) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%s\n", s.ID)
	tw.writef("User:\t%d\n", s.UserID)
	tw.writef("Query:\t%s\n", s.Query)
	tw.writef("Reference:\t%s\n", formatPrice(s.ReferencePrice))
	if s.URL != "" {
		tw.writef("URL:\t%s\n", s.URL)
	}
	return tw.finish()
}

func printSearchResult(w io.Writer, r *apiclient.SearchResult) error {
	tw := newTabWriter(w)
	tw.writef("PRICE\tTITLE\tURL\n")
	for i := range r.Listings {
		l := &r.Listings[i]
		tw.writef("%s\t%s\t%s\n", formatPrice(&l.Price), truncate(l.Title, 50), l.URL)
	}
	tw.writef("\n")
	tw.writef("Showing:\t%d of %d\n", len(r.Listings), r.Total)
	if r.Best != nil {
		tw.writef("Best:\t%s  %s\n", formatPrice(&r.Best.Price), r.Best.Title)
	}
	return tw.finish()
}

func printScanResult(w io.Writer, r *engine.ScanResult) error {
	tw := newTabWriter(w)
	tw.writef("Subscriptions:\t%d\n", r.Subscriptions)
	tw.writef("Queries:\t%d (%d failed)\n", r.Queries, r.FailedQueries)
	tw.writef("Drops:\t%d\n", r.Drops)
	tw.writef("Notified:\t%d (%d failed)\n", r.Notified, r.NotifyFailed)
	tw.writef("Stale:\t%d\n", r.Stale)
	tw.writef("Seeded:\t%d\n", r.Seeded)
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		tw.writef("Duration:\t%s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	return tw.finish()
}

func printJobRunsTable(w io.Writer, runs []domain.JobRun) error {
	tw := newTabWriter(w)
	tw.writef("JOB\tSTATUS\tSTARTED\tCOMPLETED\tNOTIFIED\tERROR\n")
	for i := range runs {
		r := &runs[i]
		completed := "-"
		if r.CompletedAt != nil {
			completed = r.CompletedAt.Format(timeLayout)
		}
		tw.writef("%s\t%s\t%s\t%s\t%d\t%s\n",
			r.JobName,
			r.Status,
			r.StartedAt.Format(timeLayout),
			completed,
			r.RowsAffected,
			truncate(r.ErrorText, 40),
		)
	}
	return tw.finish()
}

func printSchedulerState(w io.Writer, ov *apiclient.JobsOverview) error {
	tw := newTabWriter(w)
	next := "-"
	if !ov.NextScan.IsZero() {
		next = ov.NextScan.Local().Format(timeLayout)
	}
	tw.writef("Next scan:\t%s\n", next)
	tw.writef("Scanning:\t%t\n", ov.Scanning)
	return tw.finish()
}

func printQuota(w io.Writer, q *apiclient.Quota) error {
	tw := newTabWriter(w)
	if q.Unlimited {
		tw.writef("Daily limit:\tunlimited\n")
		return tw.finish()
	}
	tw.writef("Daily limit:\t%d\n", q.DailyLimit)
	tw.writef("Used:\t%d\n", q.DailyUsed)
	tw.writef("Remaining:\t%d\n", q.Remaining)
	tw.writef("Resets:\t%s\n", q.ResetAt.Local().Format(timeLayout))
	return tw.finish()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
