package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"
)

// Credentials is the per-user OAuth1 token pair. It is decrypted from the
// stored thread or taken from request headers and passed explicitly into
// every call; nothing in this package holds ambient session state.
type Credentials struct {
	AccessToken  string
	AccessSecret string
}

// TweetDraft is one publishable unit: text plus zero or one uploaded
// media identifier.
type TweetDraft struct {
	Text    string
	MediaID string
}

// Tweet is a published tweet with the public metrics the cleanup flow
// filters on.
type Tweet struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Metrics   Metrics   `json:"public_metrics"`
}

type Metrics struct {
	RetweetCount int `json:"retweet_count"`
	ReplyCount   int `json:"reply_count"`
	LikeCount    int `json:"like_count"`
	QuoteCount   int `json:"quote_count"`
}

type Client struct {
	httpClient *http.Client
	apiBase    string
	uploadBase string
}

// NewClient builds a client whose requests are OAuth1-signed with the app
// key pair and the user's token pair.
func NewClient(apiKey, apiSecret string, creds Credentials) *Client {
	conf := oauth1.NewConfig(apiKey, apiSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	return &Client{
		httpClient: conf.Client(oauth1.NoContext, token),
		apiBase:    "https://api.twitter.com",
		uploadBase: "https://upload.twitter.com",
	}
}

// UploadMedia pushes raw media bytes to the v1.1 upload endpoint and
// returns the platform media identifier.
func (c *Client) UploadMedia(ctx context.Context, data []byte, contentType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", "media")
	if err != nil {
		return "", fmt.Errorf("error building upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("error writing media bytes: %w", err)
	}
	if err := writer.WriteField("media_category", mediaCategory(contentType)); err != nil {
		return "", fmt.Errorf("error writing media category: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("error closing upload form: %w", err)
	}

	reqURL := c.uploadBase + "/1.1/media/upload.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &body)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.parseError(resp)
	}

	var result struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("error parsing upload response: %w", err)
	}
	if result.MediaIDString == "" {
		return "", fmt.Errorf("no media ID returned from upload")
	}

	return result.MediaIDString, nil
}

// PublishThread posts the drafts as one reply chain, each tweet replying
// to the previous one, and returns the root tweet ID.
func (c *Client) PublishThread(ctx context.Context, drafts []TweetDraft) (string, error) {
	var rootID, previousID string

	for i, draft := range drafts {
		payload := map[string]interface{}{
			"text": draft.Text,
		}
		if draft.MediaID != "" {
			payload["media"] = map[string]interface{}{
				"media_ids": []string{draft.MediaID},
			}
		}
		if previousID != "" {
			payload["reply"] = map[string]interface{}{
				"in_reply_to_tweet_id": previousID,
			}
		}

		id, err := c.createTweet(ctx, payload)
		if err != nil {
			return "", fmt.Errorf("error posting tweet %d of thread: %w", i+1, err)
		}

		if rootID == "" {
			rootID = id
		}
		previousID = id
	}

	return rootID, nil
}

func (c *Client) createTweet(ctx context.Context, payload map[string]interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/2/tweets", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.parseError(resp)
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if result.Data.ID == "" {
		return "", fmt.Errorf("no tweet ID returned")
	}

	return result.Data.ID, nil
}

// DeleteTweet removes one tweet by ID.
func (c *Client) DeleteTweet(ctx context.Context, tweetID string) error {
	reqURL := fmt.Sprintf("%s/2/tweets/%s", c.apiBase, url.PathEscape(tweetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(resp)
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

// Me returns the authenticated user's ID.
func (c *Client) Me(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/2/users/me", nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.parseError(resp)
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}

	return result.Data.ID, nil
}

// UserTimeline lists up to 100 recent tweets for userID posted after
// startTime, with public metrics attached.
func (c *Client) UserTimeline(ctx context.Context, userID string, startTime time.Time) ([]Tweet, error) {
	query := url.Values{}
	query.Set("max_results", "100")
	query.Set("tweet.fields", "created_at,public_metrics")
	query.Set("start_time", startTime.UTC().Format(time.RFC3339))

	reqURL := fmt.Sprintf("%s/2/users/%s/tweets?%s", c.apiBase, url.PathEscape(userID), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.parseError(resp)
	}

	var result struct {
		Data []Tweet `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error parsing timeline response: %w", err)
	}

	return result.Data, nil
}

// parseError converts a non-2xx response into an APIError, pulling the
// rate-limit reset out of the response headers when present.
func (c *Client) parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(resp.Body)
	if err == nil && len(body) > 0 {
		var parsed struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
			Errors []struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"errors"`
		}
		if jsonErr := json.Unmarshal(body, &parsed); jsonErr == nil {
			switch {
			case parsed.Detail != "":
				apiErr.Detail = parsed.Detail
			case parsed.Title != "":
				apiErr.Detail = parsed.Title
			case len(parsed.Errors) > 0:
				apiErr.Code = parsed.Errors[0].Code
				apiErr.Detail = parsed.Errors[0].Message
			}
		}
	}

	if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
		if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
			rl := &RateLimit{Reset: time.Unix(epoch, 0)}
			if limit := resp.Header.Get("x-rate-limit-limit"); limit != "" {
				rl.Limit, _ = strconv.Atoi(limit)
			}
			if remaining := resp.Header.Get("x-rate-limit-remaining"); remaining != "" {
				rl.Remaining, _ = strconv.Atoi(remaining)
			}
			apiErr.RateLimit = rl
		}
	}

	slog.Info("twitter API error", "status", resp.StatusCode, "detail", apiErr.Detail)
	return apiErr
}

func mediaCategory(contentType string) string {
	switch contentType {
	case "image/gif":
		return "tweet_gif"
	case "video/mp4", "video/quicktime":
		return "tweet_video"
	default:
		return "tweet_image"
	}
}
