package apisync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iksnae/persona-sft/internal"
)

const defaultBaseURL = "https://api.twitter.com/2"

// minRateLimitWait floors the sleep on a rate-limited response.
const minRateLimitWait = 5 * time.Second

// Client talks to the v2 social API: user-identity lookup and paginated
// timeline-since-timestamp, bearer-token authenticated.
type Client struct {
	baseURL string
	token   string
	http    *http.Client

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a client for the production API.
func NewClient(token string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// NewClientForBase creates a client against an alternate endpoint.
func NewClientForBase(baseURL, token string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	return c
}

// APITweet is one timeline item as returned by the remote API.
type APITweet struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	CreatedAt        string `json:"created_at"`
	Source           string `json:"source"`
	Lang             string `json:"lang"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

// IsQuote reports whether the item quotes another post.
func (t *APITweet) IsQuote() bool {
	for _, ref := range t.ReferencedTweets {
		if ref.Type == "quoted" {
			return true
		}
	}
	return false
}

// LookupUserID resolves an account handle to its stable id.
func (c *Client) LookupUserID(ctx context.Context, username string) (string, error) {
	endpoint := fmt.Sprintf("%s/users/by/username/%s", c.baseURL, url.PathEscape(username))
	body, _, err := c.get(ctx, endpoint)
	if err != nil {
		return "", err
	}
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &internal.FetchError{URL: endpoint, Err: fmt.Errorf("failed to parse user lookup: %w", err)}
	}
	if resp.Data.ID == "" {
		return "", &internal.FetchError{URL: endpoint, Err: fmt.Errorf("no user found for %q", username)}
	}
	return resp.Data.ID, nil
}

// FetchTimeline pages through the user's timeline from startTime forward.
// Rate-limited pages are retried after the reset window; any other request
// failure aborts the loop but returns the items fetched so far together
// with the error, so partial results are still processed by the caller.
func (c *Client) FetchTimeline(ctx context.Context, userID, startTime string, includeReplies bool) ([]APITweet, error) {
	exclude := "retweets,replies"
	if includeReplies {
		exclude = "retweets"
	}

	var tweets []APITweet
	nextToken := ""
	for {
		q := url.Values{}
		q.Set("max_results", "100")
		q.Set("start_time", startTime)
		q.Set("tweet.fields", "id,text,created_at,source,referenced_tweets,lang")
		q.Set("exclude", exclude)
		if nextToken != "" {
			q.Set("pagination_token", nextToken)
		}
		endpoint := fmt.Sprintf("%s/users/%s/tweets?%s", c.baseURL, url.PathEscape(userID), q.Encode())

		body, status, err := c.get(ctx, endpoint)
		if status == http.StatusTooManyRequests {
			wait := c.rateLimitWait(err)
			internal.LogWarn("Rate limited, sleeping %s", wait)
			c.sleep(wait)
			continue
		}
		if err != nil {
			return tweets, err
		}

		var page struct {
			Data []APITweet `json:"data"`
			Meta struct {
				NextToken string `json:"next_token"`
			} `json:"meta"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return tweets, &internal.FetchError{URL: endpoint, Err: fmt.Errorf("failed to parse page: %w", err)}
		}
		tweets = append(tweets, page.Data...)

		nextToken = page.Meta.NextToken
		if nextToken == "" {
			return tweets, nil
		}
	}
}

// rateLimitWait derives the sleep from the x-rate-limit-reset header carried
// by the fetch error, floored at minRateLimitWait.
func (c *Client) rateLimitWait(err error) time.Duration {
	wait := minRateLimitWait
	var fe *internal.FetchError
	if ferr, ok := err.(*internal.FetchError); ok {
		fe = ferr
	}
	if fe != nil && fe.RateLimitReset > 0 {
		until := time.Unix(fe.RateLimitReset, 0).Sub(c.now())
		if until > wait {
			wait = until
		}
	}
	return wait
}

// get performs one authenticated GET and returns the body and status code.
// Non-2xx responses come back as a FetchError with the status attached.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, &internal.FetchError{URL: endpoint, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &internal.FetchError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &internal.FetchError{URL: endpoint, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fe := &internal.FetchError{
			URL:    endpoint,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status: %s", string(body)),
		}
		if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
			if n, perr := strconv.ParseInt(reset, 10, 64); perr == nil {
				fe.RateLimitReset = n
			}
		}
		return nil, resp.StatusCode, fe
	}
	return body, resp.StatusCode, nil
}
