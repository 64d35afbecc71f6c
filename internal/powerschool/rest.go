package powerschool

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"lunchmanager.io/lunchmanager/internal/config"
	apperrors "lunchmanager.io/lunchmanager/internal/pkg/errors"
)

// studentPageSize is the page size requested from the student list endpoint.
// PowerSchool caps pages at 500 records.
const studentPageSize = 500

// RESTClient talks to the PowerSchool REST API using an OAuth2
// client-credentials token. Safe for sequential use by one sync run; token
// refresh is guarded for the background worker case.
type RESTClient struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	maxRetries uint64

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewRESTClient creates a RESTClient from injected configuration. The
// configured timeout bounds every request; the SIS itself enforces none.
func NewRESTClient(cfg config.PowerSchoolConfig) *RESTClient {
	return &RESTClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		clientID:   cfg.ClientID,
		secret:     cfg.ClientSecret,
		maxRetries: uint64(cfg.MaxRetries),
	}
}

// Schools implements Client.
func (c *RESTClient) Schools(ctx context.Context) ([]SchoolRecord, error) {
	var envelope struct {
		Schools struct {
			School []SchoolRecord `json:"school"`
		} `json:"schools"`
	}
	if err := c.getJSON(ctx, "/ws/v1/district/school", nil, &envelope); err != nil {
		return nil, apperrors.SourceFailure(err, "list schools")
	}
	return envelope.Schools.School, nil
}

// ActiveStaff implements Client. Staff fields beyond the core staff resource
// (homeroom, login ids) come from a named PowerQuery installed with the
// plugin, so this is a query call rather than a district resource list.
func (c *RESTClient) ActiveStaff(ctx context.Context) ([]StaffRecord, error) {
	var envelope struct {
		Record []StaffRecord `json:"record"`
	}
	if err := c.postJSON(ctx, "/ws/schema/query/org.nrca.lunchmanager.active_staff", nil, &envelope); err != nil {
		return nil, apperrors.SourceFailure(err, "list active staff")
	}
	return envelope.Record, nil
}

// ActiveStudents implements Client. Results are paged; the loop ends on the
// first short page.
func (c *RESTClient) ActiveStudents(ctx context.Context, schoolID int64, expansions string) ([]StudentRecord, error) {
	var students []StudentRecord
	for page := 1; ; page++ {
		var envelope struct {
			Students struct {
				Student []StudentRecord `json:"student"`
			} `json:"students"`
		}
		query := url.Values{
			"expansions": {expansions},
			"pagesize":   {strconv.Itoa(studentPageSize)},
			"page":       {strconv.Itoa(page)},
		}
		path := fmt.Sprintf("/ws/v1/school/%d/student", schoolID)
		if err := c.getJSON(ctx, path, query, &envelope); err != nil {
			return nil, apperrors.SourceFailure(err, fmt.Sprintf("list students for school %d", schoolID))
		}
		students = append(students, envelope.Students.Student...)
		if len(envelope.Students.Student) < studentPageSize {
			return students, nil
		}
	}
}

// HomeroomRoster implements Client.
func (c *RESTClient) HomeroomRoster(ctx context.Context, teacherDCID int64) ([]RosterEntry, error) {
	var envelope struct {
		Record []RosterEntry `json:"record"`
	}
	args := map[string]any{"teacher_dcid": teacherDCID}
	if err := c.postJSON(ctx, "/ws/schema/query/org.nrca.lunchmanager.homeroom_roster", args, &envelope); err != nil {
		return nil, apperrors.SourceFailure(err, fmt.Sprintf("homeroom roster for teacher %d", teacherDCID))
	}
	return envelope.Record, nil
}

func (c *RESTClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

func (c *RESTClient) postJSON(ctx context.Context, path string, body any, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

// doJSON performs one authenticated request with bounded retry. Transport
// errors and 5xx responses are retried with exponential backoff; 4xx
// responses fail immediately since repeating them cannot help.
func (c *RESTClient) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		token, err := c.token(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}

		reqURL := c.baseURL + path
		if len(query) > 0 {
			reqURL += "?" + query.Encode()
		}

		var payload io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("marshal request body: %w", err)
			}
			payload = strings.NewReader(string(data))
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, payload)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%s %s: %w", method, path, err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			// Token may have been revoked server-side; drop the cache and retry.
			c.invalidateToken()
			return retry.RetryableError(fmt.Errorf("%s %s: status 401", method, path))
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
		return nil
	})
}

// token returns a cached access token, fetching a fresh one when the cache
// is empty or within a minute of expiry.
func (c *RESTClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/access_token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.secret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.Wrap(
			fmt.Errorf("status %d", resp.StatusCode),
			apperrors.CodeSourceAuthFailed, "token endpoint rejected credentials")
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in,string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", apperrors.New(apperrors.CodeSourceAuthFailed, "token response missing access_token")
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func (c *RESTClient) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
}
