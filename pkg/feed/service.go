package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jpillora/backoff"

	"github.com/raykavin/chartdesk/pkg/logger"
	"github.com/raykavin/chartdesk/pkg/series"
)

const stockDataPath = "/get_stock_data"

// ServiceError is a non-retryable answer from the data service.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("data service: %d %s", e.Status, e.Message)
}

type stockData struct {
	Symbol      string                `json:"symbol"`
	Timestamps  []string              `json:"timestamps"`
	Open        []series.Number       `json:"open"`
	High        []series.Number       `json:"high"`
	Low         []series.Number       `json:"low"`
	Close       []series.Number       `json:"close"`
	Volume      []series.Number       `json:"volume"`
	News        []News                `json:"news"`
	CompareData map[string]Comparison `json:"compareData"`
}

type serviceFailure struct {
	Error string `json:"error"`
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRetries sets how many times a transient failure is retried.
func WithRetries(n int) ServiceOption {
	return func(s *Service) {
		s.retries = n
	}
}

// WithBackoff overrides the retry delays.
func WithBackoff(minDelay, maxDelay time.Duration) ServiceOption {
	return func(s *Service) {
		s.minDelay, s.maxDelay = minDelay, maxDelay
	}
}

// Service queries the stock data service over HTTP.
type Service struct {
	log      logger.Logger
	client   *resty.Client
	retries  int
	minDelay time.Duration
	maxDelay time.Duration
}

// NewService creates a client for the data service at baseURL.
func NewService(baseURL string, timeout time.Duration, log logger.Logger, options ...ServiceOption) *Service {
	s := &Service{
		log:      log,
		client:   resty.New().SetBaseURL(baseURL),
		retries:  3,
		minDelay: 200 * time.Millisecond,
		maxDelay: 2 * time.Second,
	}

	for _, option := range options {
		option(s)
	}

	s.client.
		SetTimeout(timeout).
		SetHeaders(map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		})

	return s
}

// Fetch posts the query and retries transient failures with backoff.
func (s *Service) Fetch(ctx context.Context, q Query) (Quote, error) {
	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	retry := &backoff.Backoff{Min: s.minDelay, Max: s.maxDelay, Factor: 2}
	for {
		quote, transient, err := s.fetch(ctx, q)
		if err == nil {
			return quote, nil
		}
		if !transient || int(retry.Attempt()) >= s.retries {
			return Quote{}, err
		}

		delay := retry.Duration()
		s.log.WithError(err).WithFields(map[string]any{
			"symbol":  q.Symbol,
			"attempt": int(retry.Attempt()),
			"delay":   delay.String(),
		}).Warn("data service request failed, retrying")

		select {
		case <-ctx.Done():
			return Quote{}, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// fetch reports whether a failure is worth retrying.
func (s *Service) fetch(ctx context.Context, q Query) (Quote, bool, error) {
	var (
		payload stockData
		failure serviceFailure
	)

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(q).
		SetResult(&payload).
		SetError(&failure).
		Post(stockDataPath)
	if err != nil {
		if ctx.Err() != nil {
			return Quote{}, false, ctx.Err()
		}
		return Quote{}, true, fmt.Errorf("data service request: %w", err)
	}

	if resp.IsError() {
		serr := &ServiceError{Status: resp.StatusCode(), Message: failure.Error}
		if serr.Message == "" {
			serr.Message = http.StatusText(resp.StatusCode())
		}
		if resp.StatusCode() == http.StatusNotFound {
			return Quote{}, false, fmt.Errorf("%w: %s", ErrNoData, serr)
		}
		return Quote{}, resp.StatusCode() >= http.StatusInternalServerError, serr
	}

	if len(payload.Timestamps) == 0 {
		return Quote{}, false, fmt.Errorf("%w: %s", ErrNoData, q.Symbol)
	}

	symbol := payload.Symbol
	if symbol == "" {
		symbol = q.Symbol
	}

	return Quote{
		Symbol: symbol,
		Raw: series.Raw{
			Timestamps: payload.Timestamps,
			Open:       payload.Open,
			High:       payload.High,
			Low:        payload.Low,
			Close:      payload.Close,
			Volume:     payload.Volume,
		},
		News:    payload.News,
		Compare: payload.CompareData,
	}, false, nil
}
