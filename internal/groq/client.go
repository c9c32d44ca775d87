package groq

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"
	chatTimeout    = 2 * time.Minute
	uploadTimeout  = 10 * time.Minute
)

// Client calls the Groq API for transcript rewriting and audio transcription.
// The rate limiter is shared by every pipeline in a batch run: the API is a
// scarce shared resource, so all calls gate through it.
type Client struct {
	apiKey     string
	baseURL    string
	chatModel  string
	sttModel   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a Client. requestsPerMin bounds the combined call rate
// across all concurrent pipelines; zero disables the gate.
func NewClient(apiKey, chatModel, sttModel string, requestsPerMin int) *Client {
	var limiter *rate.Limiter
	if requestsPerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMin)/60.0), 1)
	}
	return &Client{
		apiKey:    apiKey,
		baseURL:   defaultBaseURL,
		chatModel: chatModel,
		sttModel:  sttModel,
		httpClient: &http.Client{
			Timeout: uploadTimeout,
		},
		limiter: limiter,
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
