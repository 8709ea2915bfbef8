package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roomsync/models"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
)

const DefaultTimeout = 30 * time.Second

// FeedError reports a retrieval or parsing failure for one calendar.
type FeedError struct {
	Calendar string
	Err      error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("calendar %s: %v", e.Calendar, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }

// Options configures a Fetcher. URLTemplate may contain the placeholders
// {year}, {section} and {class}.
type Options struct {
	URLTemplate string
	User        string
	Password    string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Fetcher retrieves iCalendar feeds with basic auth and parses them into
// raw records.
type Fetcher struct {
	urlTemplate string
	user        string
	password    string
	http        *http.Client
	logger      *zap.Logger
}

func NewFetcher(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		urlTemplate: opts.URLTemplate,
		user:        opts.User,
		password:    opts.Password,
		http:        httpClient,
		logger:      logger,
	}
}

// URL expands the feed URL template for src.
func (f *Fetcher) URL(src *models.CalendarSource) string {
	return strings.NewReplacer(
		"{year}", strconv.Itoa(src.Year),
		"{section}", src.Section,
		"{class}", src.Class,
	).Replace(f.urlTemplate)
}

// Fetch downloads and parses the feed of src. Failures are returned as
// *FeedError.
func (f *Fetcher) Fetch(ctx context.Context, src *models.CalendarSource) ([]models.RawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(src), nil)
	if err != nil {
		return nil, &FeedError{Calendar: src.Key(), Err: err}
	}
	req.SetBasicAuth(f.user, f.password)
	req.Header.Set("Accept", "text/calendar")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, &FeedError{Calendar: src.Key(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &FeedError{Calendar: src.Key(), Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	events, err := f.parse(src.Key(), resp.Body)
	if err != nil {
		return nil, &FeedError{Calendar: src.Key(), Err: err}
	}
	return events, nil
}

func (f *Fetcher) parse(calendar string, r io.Reader) ([]models.RawEvent, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse iCalendar: %w", err)
	}

	var events []models.RawEvent
	for _, component := range cal.Components {
		switch c := component.(type) {
		case *ics.VEvent:
			ev, err := rawFromEvent(c)
			if err != nil {
				f.logger.Warn("Skipping unreadable event",
					zap.String("calendar", calendar), zap.String("uid", c.Id()), zap.Error(err))
				continue
			}
			events = append(events, ev)
		case *ics.VTodo:
			events = append(events, models.RawEvent{Type: "VTODO", UID: c.Id()})
		case *ics.VJournal:
			events = append(events, models.RawEvent{Type: "VJOURNAL", UID: c.Id()})
		case *ics.VBusy:
			events = append(events, models.RawEvent{Type: "VFREEBUSY", UID: c.Id()})
		}
	}
	return events, nil
}

func rawFromEvent(ev *ics.VEvent) (models.RawEvent, error) {
	start, err := ev.GetStartAt()
	if err != nil {
		return models.RawEvent{}, fmt.Errorf("invalid DTSTART: %w", err)
	}
	end, err := eventEnd(ev, start)
	if err != nil {
		return models.RawEvent{}, err
	}
	return models.RawEvent{
		Type:        "VEVENT",
		UID:         ev.Id(),
		Start:       start,
		End:         end,
		Summary:     propertyValue(ev, ics.ComponentPropertySummary),
		Description: propertyValue(ev, ics.ComponentPropertyDescription),
	}, nil
}

// eventEnd reads DTEND, or DTSTART plus DURATION when DTEND is absent.
func eventEnd(ev *ics.VEvent, start time.Time) (time.Time, error) {
	if ev.GetProperty(ics.ComponentPropertyDtEnd) != nil {
		end, err := ev.GetEndAt()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid DTEND: %w", err)
		}
		return end, nil
	}
	dur := propertyValue(ev, ics.ComponentProperty(ics.PropertyDuration))
	if dur == "" {
		return time.Time{}, errors.New("event has neither DTEND nor DURATION")
	}
	d, err := parseDuration(dur)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid DURATION: %w", err)
	}
	return start.Add(d), nil
}

func propertyValue(ev *ics.VEvent, prop ics.ComponentProperty) string {
	p := ev.GetProperty(prop)
	if p == nil {
		return ""
	}
	return p.Value
}
