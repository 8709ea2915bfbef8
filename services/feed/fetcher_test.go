package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roomsync/models"
)

var sampleFeed = strings.Join([]string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//test//feed//EN",
	"BEGIN:VEVENT",
	"UID:evt-1",
	"DTSTAMP:20261001T000000Z",
	"DTSTART:20261016T063000Z",
	"DTEND:20261016T080000Z",
	"SUMMARY:Math",
	"DESCRIPTION:Room: 04",
	"END:VEVENT",
	"BEGIN:VTODO",
	"UID:todo-1",
	"DTSTAMP:20261001T000000Z",
	"SUMMARY:Homework",
	"END:VTODO",
	"END:VCALENDAR",
	"",
}, "\r\n")

func TestFetchParsesFeed(t *testing.T) {
	var gotPath, gotUser, gotPass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	f := NewFetcher(Options{
		URLTemplate: server.URL + "/ical/vit/{year}/{section}/{class}",
		User:        "feeduser",
		Password:    "feedpass",
	})
	src := &models.CalendarSource{Class: "k01", Year: 2021, Section: "h3"}

	events, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/ical/vit/2021/h3/k01" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "feeduser" || gotPass != "feedpass" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2: %+v", len(events), events)
	}

	ev := events[0]
	if ev.Type != "VEVENT" || ev.UID != "evt-1" || ev.Summary != "Math" || ev.Description != "Room: 04" {
		t.Errorf("event = %+v", ev)
	}
	wantStart := time.Date(2026, 10, 16, 6, 30, 0, 0, time.UTC)
	if !ev.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", ev.Start, wantStart)
	}
	if !ev.End.Equal(wantStart.Add(90 * time.Minute)) {
		t.Errorf("end = %v", ev.End)
	}
	if events[1].Type != "VTODO" {
		t.Errorf("second record type = %q, want VTODO", events[1].Type)
	}
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	f := NewFetcher(Options{URLTemplate: server.URL + "/{year}"})
	_, err := f.Fetch(context.Background(), &models.CalendarSource{Class: "k02", Year: 2021, Section: "h3"})

	var feedErr *FeedError
	if !errors.As(err, &feedErr) {
		t.Fatalf("error = %v, want *FeedError", err)
	}
	if feedErr.Calendar != "2021/h3/k02" {
		t.Errorf("calendar = %q", feedErr.Calendar)
	}
}

func TestURLTemplate(t *testing.T) {
	f := NewFetcher(Options{URLTemplate: "https://example.org/ical/vit/{year}/{section}/{class}"})
	got := f.URL(&models.CalendarSource{Class: "k01", Year: 2021, Section: "h3"})
	if got != "https://example.org/ical/vit/2021/h3/k01" {
		t.Errorf("URL = %q", got)
	}
}

func TestFetchDurationAndFreeBusy(t *testing.T) {
	feed := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//feed//EN",
		"BEGIN:VEVENT",
		"UID:evt-dur",
		"DTSTAMP:20261001T000000Z",
		"DTSTART:20261016T080000Z",
		"DURATION:PT1H15M",
		"SUMMARY:Physics",
		"DESCRIPTION:Room: 2",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:evt-open",
		"DTSTAMP:20261001T000000Z",
		"DTSTART:20261016T120000Z",
		"SUMMARY:No end",
		"END:VEVENT",
		"BEGIN:VFREEBUSY",
		"UID:busy-1",
		"DTSTAMP:20261001T000000Z",
		"END:VFREEBUSY",
		"END:VCALENDAR",
		"",
	}, "\r\n")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))
	defer server.Close()

	f := NewFetcher(Options{URLTemplate: server.URL})
	events, err := f.Fetch(context.Background(), &models.CalendarSource{Class: "k01", Year: 2021, Section: "h3"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 (event without end skipped): %+v", len(events), events)
	}

	start := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	if ev := events[0]; ev.UID != "evt-dur" || !ev.End.Equal(start.Add(75*time.Minute)) {
		t.Errorf("duration event = %+v", ev)
	}
	if ev := events[1]; ev.Type != "VFREEBUSY" || ev.UID != "busy-1" {
		t.Errorf("free/busy record = %+v", ev)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"PT45M", 45 * time.Minute, true},
		{"PT1H30M", 90 * time.Minute, true},
		{"P1DT2H", 26 * time.Hour, true},
		{"P2W", 14 * 24 * time.Hour, true},
		{"-PT15M", -15 * time.Minute, true},
		{"+PT10S", 10 * time.Second, true},
		{"pt5m", 5 * time.Minute, true},
		{"P", 0, false},
		{"PT", 0, false},
		{"P1DT", 0, false},
		{"PT5", 0, false},
		{"P1H", 0, false},
		{"1H", 0, false},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("parseDuration(%q) = %v, %v; want %v, ok=%v", tt.in, got, err, tt.want, tt.ok)
		}
	}
}
