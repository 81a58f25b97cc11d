package aula

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"aulabot/internal/models"
)

// Endpoints locates the portal. Tests point these at fixture servers.
type Endpoints struct {
	LoginURL     string
	PortalURL    string
	APIBase      string
	StartVersion int
}

// DefaultEndpoints returns the production portal endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		LoginURL:     "https://login.aula.dk/auth/login.php",
		PortalURL:    "https://www.aula.dk:443/portal/",
		APIBase:      "https://www.aula.dk/api",
		StartVersion: 20,
	}
}

// Client is an authenticated portal client. It owns its transport session
// (cookie jar, negotiated API base URL) and re-authenticates transparently
// when the session expires. A mutex serializes operations so one instance can
// be shared between callers.
type Client struct {
	mu        sync.Mutex
	username  string
	password  string
	endpoints Endpoints

	httpClient *http.Client
	apiURL     string
	profiles   []profile
	// childIDs keys on the first token of each child's name, built from the
	// first profile at login. Children sharing a first name collide; the last
	// one wins. Known limitation carried over from the lookup's origin.
	childIDs    map[string]int
	activeChild string
}

// New creates a client for the production portal. No network calls are made
// until the first operation.
func New(username, password string) *Client {
	return NewWithEndpoints(username, password, DefaultEndpoints())
}

// NewWithEndpoints creates a client against explicit endpoints.
func NewWithEndpoints(username, password string, endpoints Endpoints) *Client {
	return &Client{
		username:  username,
		password:  password,
		endpoints: endpoints,
	}
}

type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type profile struct {
	Children []profileChild `json:"children"`
}

type profileChild struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	InstitutionProfile struct {
		InstitutionName string `json:"institutionName"`
	} `json:"institutionProfile"`
}

type profilesResponse struct {
	Status apiStatus `json:"status"`
	Data   struct {
		Profiles []profile `json:"profiles"`
	} `json:"data"`
}

func (c *Client) setProfiles(profiles []profile) {
	c.profiles = profiles
	c.childIDs = make(map[string]int)
	if len(profiles) == 0 {
		return
	}
	for _, child := range profiles[0].Children {
		first := strings.SplitN(child.Name, " ", 2)[0]
		c.childIDs[first] = child.ID
	}
}

// SetActiveChild selects the child used by child-scoped operations. The name
// is not validated against the profile store; a name that matches nothing
// simply yields empty results from later lookups.
func (c *Client) SetActiveChild(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeChild = name
}

// ActiveChild returns the currently selected child name, or "".
func (c *Client) ActiveChild() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeChild
}

// ensureSession makes the session usable: logs in if there is none, probes
// the profile list otherwise and re-authenticates when the probe does not
// come back OK. Invoked at the top of every operation.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.httpClient == nil || c.apiURL == "" {
		return c.login(ctx)
	}
	var probe profilesResponse
	if err := c.apiGet(ctx, "?method=profiles.getProfilesByLogin", &probe); err != nil || probe.Status.Message != "OK" {
		log.Printf("aula: session expired, re-authenticating")
		return c.login(ctx)
	}
	return nil
}

// ChildID resolves the active child to its institution profile id. An
// unknown name resolves to 0.
func (c *Client) ChildID(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeChild == "" {
		return 0, ErrNoActiveChild
	}
	if err := c.ensureSession(ctx); err != nil {
		return 0, err
	}
	return c.childIDs[c.activeChild], nil
}

// Institution returns the institution name of the first child whose full
// name contains the active child name.
func (c *Client) Institution(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeChild == "" {
		return "", ErrNoActiveChild
	}
	if err := c.ensureSession(ctx); err != nil {
		return "", err
	}
	if len(c.profiles) == 0 {
		return "", nil
	}
	for _, child := range c.profiles[0].Children {
		if strings.Contains(child.Name, c.activeChild) {
			return child.InstitutionProfile.InstitutionName, nil
		}
	}
	return "", nil
}

// FetchBasicData flattens every profile's children into a map keyed by child
// id.
func (c *Client) FetchBasicData(ctx context.Context) (map[string]models.ChildInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	children := make(map[string]models.ChildInfo)
	for _, p := range c.profiles {
		for _, child := range p.Children {
			children[strconv.Itoa(child.ID)] = models.ChildInfo{
				Name:        child.Name,
				Institution: child.InstitutionProfile.InstitutionName,
			}
		}
	}
	return children, nil
}

// FetchDailyOverview fetches today's presence record for the active child.
// A child without presence data gets an explicit nil entry, not an error.
func (c *Client) FetchDailyOverview(ctx context.Context) (models.DailyOverview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeChild == "" {
		return nil, ErrNoActiveChild
	}
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	childID := c.childIDs[c.activeChild]

	var resp struct {
		Status apiStatus                `json:"status"`
		Data   []map[string]interface{} `json:"data"`
	}
	query := fmt.Sprintf("?method=presence.getDailyOverview&childIds[]=%d", childID)
	if err := c.apiGet(ctx, query, &resp); err != nil {
		return nil, err
	}

	overview := models.DailyOverview{}
	if len(resp.Data) > 0 {
		overview[childID] = resp.Data[0]
	} else {
		log.Printf("aula: no presence data for child %d", childID)
		overview[childID] = nil
	}
	return overview, nil
}

type threadMessage struct {
	MessageType string          `json:"messageType"`
	Text        json.RawMessage `json:"text"`
	Sender      struct {
		FullName string `json:"fullName"`
	} `json:"sender"`
}

type threadResponse struct {
	Status apiStatus `json:"status"`
	Data   struct {
		Subject  string          `json:"subject"`
		Messages []threadMessage `json:"messages"`
	} `json:"data"`
}

// FetchMessages lists threads newest-first and expands each unread thread
// into its messages. A thread the account may not open yields one Danish
// placeholder message instead of failing the whole fetch.
func (c *Client) FetchMessages(ctx context.Context) ([]models.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	var threads struct {
		Status apiStatus `json:"status"`
		Data   struct {
			Threads []struct {
				ID   int  `json:"id"`
				Read bool `json:"read"`
			} `json:"threads"`
		} `json:"data"`
	}
	if err := c.apiGet(ctx, "?method=messaging.getThreads&sortOn=date&orderDirection=desc&page=0", &threads); err != nil {
		return nil, err
	}

	messages := []models.Message{}
	for _, thread := range threads.Data.Threads {
		if thread.Read {
			continue
		}
		var tr threadResponse
		query := fmt.Sprintf("?method=messaging.getMessagesForThread&threadId=%d&page=0", thread.ID)
		if err := c.apiGet(ctx, query, &tr); err != nil {
			return nil, err
		}
		if tr.Status.Code == http.StatusForbidden {
			messages = append(messages, models.Message{
				Subject: "Følsom besked",
				Text:    "Log ind på Aula med MitID for at læse denne besked.",
				Sender:  "Ukendt afsender",
			})
			continue
		}
		for _, msg := range tr.Data.Messages {
			if msg.MessageType != "Message" {
				continue
			}
			sender := msg.Sender.FullName
			if sender == "" {
				sender = "Ukendt afsender"
			}
			messages = append(messages, models.Message{
				Subject: tr.Data.Subject,
				Text:    messageText(msg.Text),
				Sender:  sender,
			})
		}
	}
	return messages, nil
}

// messageText unwraps the portal's text field, which is either an object
// with an html member or a bare string.
func messageText(raw json.RawMessage) string {
	var rich struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(raw, &rich); err == nil && rich.HTML != "" {
		return rich.HTML
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil && plain != "" {
		return plain
	}
	return "intet indhold..."
}

// FetchCalendar fetches events between now and now+days across all known
// children and keeps only those belonging to the active child. A non-OK API
// status degrades to an empty list.
func (c *Client) FetchCalendar(ctx context.Context, days int) ([]models.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchCalendar(ctx, days)
}

// FetchCalendarByDay is FetchCalendar with the result grouped per day by
// StructureByDay.
func (c *Client) FetchCalendarByDay(ctx context.Context, days int) (map[string][]models.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	events, err := c.fetchCalendar(ctx, days)
	if err != nil {
		return nil, err
	}
	return StructureByDay(events)
}

func (c *Client) fetchCalendar(ctx context.Context, days int) ([]models.CalendarEvent, error) {
	if c.activeChild == "" {
		return nil, ErrNoActiveChild
	}
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payload, err := json.Marshal(map[string]interface{}{
		"instProfileIds": c.childIDValues(),
		"resourceIds":    []int{},
		"start":          calendarTimestamp(now),
		"end":            calendarTimestamp(now.AddDate(0, 0, days)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode calendar request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"?method=calendar.getEventsByProfileIdsAndResourceIds", strings.NewReader(string(payload)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("csrfp-token", c.csrfToken())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var calendar struct {
		Status apiStatus              `json:"status"`
		Data   []models.CalendarEvent `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&calendar); err != nil {
		return nil, fmt.Errorf("failed to decode calendar response: %w", err)
	}
	if calendar.Status.Message != "OK" {
		log.Printf("aula: calendar fetch returned status %q, dropping result", calendar.Status.Message)
		return []models.CalendarEvent{}, nil
	}

	childID := c.childIDs[c.activeChild]
	events := []models.CalendarEvent{}
	for _, event := range calendar.Data {
		if event.BelongsTo(childID) {
			events = append(events, event)
		}
	}
	return events, nil
}

// calendarTimestamp renders t's date at midnight in the portal's expected
// "2006-01-02 00:00:00.0000+0000" shape.
func calendarTimestamp(t time.Time) string {
	return t.Format("2006-01-02") + " 00:00:00.0000" + t.Format("-0700")
}

func (c *Client) childIDValues() []int {
	ids := make([]int, 0, len(c.childIDs))
	for _, id := range c.childIDs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// FetchGallery lists albums across every child, then flattens each album's
// pictures into one sequence. Non-OK statuses degrade to empty results.
func (c *Client) FetchGallery(ctx context.Context) ([]models.GalleryItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	var ids []string
	for _, p := range c.profiles {
		for _, child := range p.Children {
			ids = append(ids, strconv.Itoa(child.ID))
		}
	}

	var albums struct {
		Status apiStatus `json:"status"`
		Data   struct {
			Albums []struct {
				ID int `json:"id"`
			} `json:"albums"`
		} `json:"data"`
	}
	query := "?method=gallery.getAlbums&institutionProfileIds=" + strings.Join(ids, ",") + "&page=0"
	if err := c.apiGet(ctx, query, &albums); err != nil {
		return nil, err
	}
	if albums.Status.Message != "OK" {
		log.Printf("aula: gallery fetch returned status %q, dropping result", albums.Status.Message)
		return []models.GalleryItem{}, nil
	}

	items := []models.GalleryItem{}
	for _, album := range albums.Data.Albums {
		var pictures struct {
			Status apiStatus `json:"status"`
			Data   struct {
				Pictures []models.GalleryItem `json:"pictures"`
			} `json:"data"`
		}
		if err := c.apiGet(ctx, fmt.Sprintf("?method=gallery.getAlbum&id=%d", album.ID), &pictures); err != nil {
			return nil, err
		}
		if pictures.Status.Message != "OK" {
			continue
		}
		items = append(items, pictures.Data.Pictures...)
	}
	return items, nil
}

// CustomAPICall is the generic escape hatch: GET when body is empty, POST
// with the JSON body otherwise. A body that is not valid JSON yields a
// structured failure value; a response that is not a JSON object is wrapped
// under raw_response. Neither case is an error.
func (c *Client) CustomAPICall(ctx context.Context, path, body string) (map[string]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	var req *http.Request
	var err error
	if body != "" {
		if !json.Valid([]byte(body)) {
			log.Printf("aula: invalid JSON body for custom call %s", path)
			return map[string]interface{}{"result": "Fail - invalid JSON"}, nil
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, strings.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("csrfp-token", c.csrfToken())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return map[string]interface{}{"raw_response": string(raw)}, nil
	}
	return parsed, nil
}

// csrfToken reads the anti-forgery token the portal leaves in the cookie
// jar. Empty when the cookie is not present yet.
func (c *Client) csrfToken() string {
	if c.httpClient == nil || c.httpClient.Jar == nil {
		return ""
	}
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == "Csrfp-Token" {
			return cookie.Value
		}
	}
	return ""
}

// apiGet issues a GET against the negotiated API base and decodes the JSON
// response into out.
func (c *Client) apiGet(ctx context.Context, query string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+query, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode api response: %w", err)
	}
	return nil
}
