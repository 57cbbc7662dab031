// Package caldav implements the calendar source/sink over the CalDAV
// protocol. It is the only component that talks to the provider; everything
// above it works on domain occurrences.
package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"github.com/kellertobias/calmirror/internal/domain"
	"github.com/kellertobias/calmirror/internal/errs"
)

const (
	// Apple iCloud CalDAV endpoint
	DefaultiCloudURL = "https://caldav.icloud.com"
)

// Client is a CalDAV client implementing the engine's Provider interface.
type Client struct {
	baseURL  string
	username string
	password string
	client   *caldav.Client
}

// NewClient creates a new CalDAV client.
func NewClient(baseURL, username, password string) *Client {
	if baseURL == "" {
		baseURL = DefaultiCloudURL
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// IsConfigured returns true if the client has credentials.
func (c *Client) IsConfigured() bool {
	return c.username != "" && c.password != ""
}

// connect establishes connection to the CalDAV server.
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests.
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// CanRead probes read authorization by resolving the current user principal.
func (c *Client) CanRead(ctx context.Context) bool {
	client, err := c.connect()
	if err != nil {
		return false
	}
	_, err = client.FindCurrentUserPrincipal(ctx)
	return err == nil
}

// Calendars returns every calendar reachable with current authorization.
func (c *Client) Calendars(ctx context.Context) ([]domain.CalendarInfo, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var result []domain.CalendarInfo
	for _, cal := range cals {
		result = append(result, domain.CalendarInfo{
			Ref:      cal.Path,
			Title:    cal.Name,
			Writable: supportsEvents(cal),
		})
	}
	return result, nil
}

// ResolveCalendar locates a calendar by path or display name.
func (c *Client) ResolveCalendar(ctx context.Context, ref string) (domain.CalendarInfo, error) {
	cals, err := c.Calendars(ctx)
	if err != nil {
		return domain.CalendarInfo{}, err
	}
	for _, cal := range cals {
		if cal.Ref == ref || cal.Title == ref {
			return cal, nil
		}
	}
	return domain.CalendarInfo{}, fmt.Errorf("calendar %q: %w", ref, errs.ErrNotFound)
}

// supportsEvents reports whether a calendar collection accepts VEVENTs. The
// protocol does not expose per-calendar write privileges through this
// client, so component support is the closest writable signal available.
func supportsEvents(cal caldav.Calendar) bool {
	if len(cal.SupportedComponentSet) == 0 {
		return true
	}
	for _, comp := range cal.SupportedComponentSet {
		if comp == ical.CompEvent {
			return true
		}
	}
	return false
}

// ListEvents returns all occurrences intersecting [from, to), with
// recurring series expanded into individual occurrences.
func (c *Client) ListEvents(ctx context.Context, calendarRef string, from, to time.Time) ([]domain.Occurrence, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	if calendarRef == "" {
		return nil, fmt.Errorf("calendar path not specified")
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: from,
					End:   to,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, calendarRef, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var events []domain.Occurrence
	for i := range objects {
		occs, err := parseCalendarObject(&objects[i], c.username, from, to)
		if err != nil {
			continue // Skip invalid events
		}
		for j := range occs {
			occs[j].CalendarRef = calendarRef
		}
		events = append(events, occs...)
	}

	return events, nil
}

// CreateEvent writes a new event and returns its native identifier.
func (c *Client) CreateEvent(ctx context.Context, calendarRef string, ev *domain.Occurrence) (string, error) {
	client, err := c.connect()
	if err != nil {
		return "", err
	}

	if calendarRef == "" {
		return "", fmt.Errorf("calendar path not specified")
	}

	uid := ev.NativeID
	if uid == "" {
		uid = uuid.NewString() + "@calmirror"
	}

	cal := eventToICS(ev, uid)
	if _, err := client.PutCalendarObject(ctx, eventPath(calendarRef, uid), cal); err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	return uid, nil
}

// UpdateEvent replaces an existing event (CalDAV PUT semantics).
func (c *Client) UpdateEvent(ctx context.Context, calendarRef string, ev *domain.Occurrence) error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	if ev.NativeID == "" {
		return fmt.Errorf("event has no identifier")
	}

	cal := eventToICS(ev, ev.NativeID)
	if _, err := client.PutCalendarObject(ctx, eventPath(calendarRef, ev.NativeID), cal); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// DeleteEvent deletes an event by its native identifier.
func (c *Client) DeleteEvent(ctx context.Context, calendarRef, nativeID string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	if err := client.RemoveAll(ctx, eventPath(calendarRef, nativeID)); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// ReadEvent fetches a single event by identifier. A missing event returns
// nil without error; the engine uses this for write verification.
func (c *Client) ReadEvent(ctx context.Context, calendarRef, nativeID string) (*domain.Occurrence, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	obj, err := client.GetCalendarObject(ctx, eventPath(calendarRef, nativeID))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read event: %w", err)
	}

	occs, err := parseCalendarObject(obj, c.username, time.Time{}, time.Time{})
	if err != nil || len(occs) == 0 {
		return nil, nil
	}
	occ := occs[0]
	occ.CalendarRef = calendarRef
	return &occ, nil
}

func eventPath(calendarRef, uid string) string {
	path := calendarRef
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + uid + ".ics"
}

func isNotFound(err error) bool {
	return err != nil &&
		(strings.Contains(err.Error(), "404") || strings.Contains(err.Error(), "not found"))
}
