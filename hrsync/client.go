package hrsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/thiagosoaresdev/hcm-position-panorama-sub002/workflow"
)

// hrClient talks to the HR-of-record REST API for normalization pulls.
type hrClient struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
	limiter   <-chan time.Time
}

func NewHrClient(apiKey string) (*hrClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("HR_API_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("HR_API_BASE_URL is not set")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("HR_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("hr api key is empty")
	}
	rateLimitPerMin := int64(30)
	if v := strings.TrimSpace(os.Getenv("HR_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &hrClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   time.Tick(interval),
	}, nil
}

type rosterPage struct {
	Data       []rosterPerson `json:"data"`
	NextCursor string         `json:"next_cursor"`
	HasMore    *bool          `json:"has_more"`
}

type rosterPerson struct {
	PersonId      string `json:"person_id"`
	PositionId    string `json:"position_id"`
	RoleId        string `json:"role_id"`
	Accessibility bool   `json:"accessibility"`
	Status        string `json:"status"`
}

// ActiveRoster pages through the employees endpoint until the cursor runs out.
func (c *hrClient) ActiveRoster(ctx context.Context, organizationId string) ([]workflow.RosterEntry, error) {

	var roster []workflow.RosterEntry
	cursor := ""
	for {
		params := url.Values{}
		params.Set("status", "active")
		params.Set("limit", "200")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		page, err := c.getRosterPage(ctx, "/v1/organizations/"+organizationId+"/employees", params)
		if err != nil {
			return nil, err
		}

		for _, p := range page.Data {
			if !strings.EqualFold(p.Status, "active") {
				continue
			}
			roster = append(roster, workflow.RosterEntry{
				PersonExternalId: p.PersonId,
				PositionExternal: p.PositionId,
				CargoExternal:    p.RoleId,
				Accessibility:    p.Accessibility,
			})
		}

		if page.NextCursor == "" || (page.HasMore != nil && !*page.HasMore) {
			return roster, nil
		}
		cursor = page.NextCursor
	}
}

func (c *hrClient) getRosterPage(ctx context.Context, path string, params url.Values) (rosterPage, error) {
	<-c.limiter
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return rosterPage{}, err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return rosterPage{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return rosterPage{}, fmt.Errorf("hr api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed rosterPage
	if err := json.Unmarshal(body, &parsed); err != nil {
		return rosterPage{}, err
	}
	return parsed, nil
}
