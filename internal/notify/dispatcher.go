package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/internal/domain"
)

// InterChunkSleep separates consecutive pages of the same message so a
// bursty multi-page send does not trip a channel's own rate limiter.
const InterChunkSleep = 300 * time.Millisecond

// Dispatcher fans a finished report out to every configured Channel,
// honoring per-group routing and per-channel chunking (§4.10).
type Dispatcher struct {
	channels       []Channel
	groups         []config.NotificationGroup
	chunkOverrides map[string]int
	sleep          func(time.Duration)
	log            zerolog.Logger
}

// New builds a Dispatcher. chunkOverrides maps a channel id to a
// byte-limit override (config.Config.NotifyChunkBytesOverrides);
// channels with no override fall back to their own default.
func New(channels []Channel, groups []config.NotificationGroup, chunkOverrides map[string]int, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		channels:       channels,
		groups:         groups,
		chunkOverrides: chunkOverrides,
		sleep:          time.Sleep,
		log:            log.With().Str("component", "notify").Logger(),
	}
}

// defaultChunkBytes returns the built-in page size for a channel id,
// consulted when no NOTIFY_CHUNK_BYTES_<CHANNEL> override is set.
func defaultChunkBytes(channelID string) int {
	switch channelID {
	case "email":
		return DefaultEmailChunkBytes
	case "im":
		return DefaultIMChunkBytes
	default:
		return 0 // unbounded: one page
	}
}

func (d *Dispatcher) chunkBytesFor(channelID string) int {
	if n, ok := d.chunkOverrides[channelID]; ok && n > 0 {
		return n
	}
	return defaultChunkBytes(channelID)
}

// recipientsFor resolves the group-routed recipient list for ticker.
// A nil result means "no group claims this ticker" — the channel
// falls back to its own default recipients.
func (d *Dispatcher) recipientsFor(ticker string) []string {
	for _, g := range d.groups {
		if groupContains(g.StockGroup, ticker) {
			return splitList(g.EmailGroup)
		}
	}
	return nil
}

func groupContains(csv, ticker string) bool {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	for _, t := range splitList(csv) {
		if strings.ToUpper(t) == ticker {
			return true
		}
	}
	return false
}

func splitList(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// allEmailAddresses returns the deduplicated union of every
// EMAIL_GROUP_N address, used for market-review broadcast delivery.
func (d *Dispatcher) allEmailAddresses() []string {
	seen := map[string]bool{}
	var out []string
	for _, g := range d.groups {
		for _, addr := range splitList(g.EmailGroup) {
			if !seen[addr] {
				seen[addr] = true
				out = append(out, addr)
			}
		}
	}
	return out
}

// DispatchOne sends one report to every channel, group-routed by
// ticker. It implements pipeline.Dispatcher for single-stock-notify
// mode (§4.5 step 8, §6 --single-notify).
func (d *Dispatcher) DispatchOne(ctx context.Context, rep domain.AnalysisReport) error {
	secs := sections(rep)
	subj := subject(rep)
	recipients := d.recipientsFor(rep.Meta.Ticker)

	var firstErr error
	for _, ch := range d.channels {
		if err := d.sendSections(ctx, ch, recipients, subj, secs); err != nil {
			d.log.Warn().Str("ticker", rep.Meta.Ticker).Str("channel", ch.ID()).Err(err).Msg("dispatch failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// DispatchBatch sends a whole day's reports, one message per report
// unless mergeEmail is set, in which case every report routed to the
// same email group is combined into a single email. Per-report failures
// are logged and do not abort the batch (§7: notifications omit failed
// tickers; this applies to delivery, not analysis, failures too).
func (d *Dispatcher) DispatchBatch(ctx context.Context, reports []domain.AnalysisReport, mergeEmail bool) {
	if !mergeEmail {
		for _, rep := range reports {
			if err := d.DispatchOne(ctx, rep); err != nil {
				d.log.Warn().Str("ticker", rep.Meta.Ticker).Err(err).Msg("batch dispatch: report failed")
			}
		}
		return
	}

	byGroup := map[string][]domain.AnalysisReport{}
	var ungrouped []domain.AnalysisReport
	for _, rep := range reports {
		recipients := d.recipientsFor(rep.Meta.Ticker)
		if len(recipients) == 0 {
			ungrouped = append(ungrouped, rep)
			continue
		}
		key := strings.Join(recipients, ",")
		byGroup[key] = append(byGroup[key], rep)
	}

	for key, grouped := range byGroup {
		recipients := splitList(key)
		d.sendMerged(ctx, recipients, grouped)
	}
	for _, rep := range ungrouped {
		if err := d.DispatchOne(ctx, rep); err != nil {
			d.log.Warn().Str("ticker", rep.Meta.Ticker).Err(err).Msg("batch dispatch: ungrouped report failed")
		}
	}
}

func (d *Dispatcher) sendMerged(ctx context.Context, recipients []string, reports []domain.AnalysisReport) {
	var secs []section
	for i, rep := range reports {
		if i > 0 {
			secs = append(secs, section{heading: "---", body: ""})
		}
		secs = append(secs, sections(rep)...)
	}
	subj := fmt.Sprintf("Daily analysis: %d stocks", len(reports))

	for _, ch := range d.channels {
		if ch.ID() != "email" {
			continue
		}
		if err := d.sendSections(ctx, ch, recipients, subj, secs); err != nil {
			d.log.Warn().Err(err).Int("count", len(reports)).Msg("merged dispatch failed")
		}
	}
}

// DispatchMarketReview broadcasts a batch-level digest to every
// configured email address regardless of group routing (§4.10:
// "Market-review reports go to every configured email").
func (d *Dispatcher) DispatchMarketReview(ctx context.Context, region string, reports []domain.AnalysisReport) error {
	recipients := d.allEmailAddresses()
	if len(recipients) == 0 {
		return nil
	}

	var secs []section
	secs = append(secs, section{heading: fmt.Sprintf("Market review (%s)", region), body: fmt.Sprintf("%d reports", len(reports))})
	for _, rep := range reports {
		secs = append(secs, section{
			heading: fmt.Sprintf("%s (%s)", rep.Meta.Name, rep.Meta.Ticker),
			body:    fmt.Sprintf("%s — sentiment %d/100", rep.Summary.OperationAdvice, rep.Summary.SentimentScore),
		})
	}
	subj := fmt.Sprintf("Market review: %s", region)

	var firstErr error
	for _, ch := range d.channels {
		if ch.ID() != "email" {
			continue
		}
		if err := d.sendSections(ctx, ch, recipients, subj, secs); err != nil {
			firstErr = err
		}
	}
	return firstErr
}

// sendSections chunks secs to ch's byte budget, paginates, and sends
// every page with an inter-chunk sleep between pages.
func (d *Dispatcher) sendSections(ctx context.Context, ch Channel, recipients []string, subj string, secs []section) error {
	pages := paginate(chunkSections(secs, d.chunkBytesFor(ch.ID())))

	for i, page := range pages {
		if err := ch.Send(ctx, recipients, subj, page); err != nil {
			return fmt.Errorf("notify: %s send failed: %w", ch.ID(), err)
		}
		if i < len(pages)-1 {
			d.sleep(InterChunkSleep)
		}
	}
	return nil
}
