package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
)

const (
	openWeatherBaseURL  = "https://api.openweathermap.org/data/2.5/weather"
	alphaVantageBaseURL = "https://www.alphavantage.co/query"
	newsAPIBaseURL      = "https://newsapi.org/v2/everything"
)

// WeatherFetcher reads current weather from OpenWeatherMap. Value is the
// temperature in Celsius, Label the coarse condition (Clear, Rain, ...).
type WeatherFetcher struct {
	apiKey  string
	city    string
	ttl     time.Duration
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewWeatherFetcher creates an OpenWeatherMap fetcher
func NewWeatherFetcher(apiKey, city string, ttl time.Duration, client *http.Client) *WeatherFetcher {
	return &WeatherFetcher{
		apiKey:  apiKey,
		city:    city,
		ttl:     ttl,
		baseURL: openWeatherBaseURL,
		client:  client,
		now:     time.Now,
	}
}

// Fetch retrieves the current weather snapshot
func (f *WeatherFetcher) Fetch(ctx context.Context) (*domain.SignalSnapshot, error) {
	params := url.Values{}
	params.Set("q", f.city)
	params.Set("appid", f.apiKey)
	params.Set("units", "metric")

	var payload struct {
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
	}
	if err := getJSON(ctx, f.client, f.baseURL+"?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch weather data: %w", err)
	}

	condition := "Unknown"
	if len(payload.Weather) > 0 {
		condition = payload.Weather[0].Main
	}

	return &domain.SignalSnapshot{
		Type:      domain.SignalWeather,
		Value:     payload.Main.Temp,
		Label:     condition,
		FetchedAt: f.now(),
		TTL:       f.ttl,
	}, nil
}

// MarketFetcher reads a quote from Alpha Vantage. Value is the day's change
// percent, Label the derived sentiment (positive/negative).
type MarketFetcher struct {
	apiKey  string
	symbol  string
	ttl     time.Duration
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewMarketFetcher creates an Alpha Vantage quote fetcher
func NewMarketFetcher(apiKey, symbol string, ttl time.Duration, client *http.Client) *MarketFetcher {
	return &MarketFetcher{
		apiKey:  apiKey,
		symbol:  symbol,
		ttl:     ttl,
		baseURL: alphaVantageBaseURL,
		client:  client,
		now:     time.Now,
	}
}

// Fetch retrieves the current market snapshot
func (f *MarketFetcher) Fetch(ctx context.Context) (*domain.SignalSnapshot, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", f.symbol)
	params.Set("apikey", f.apiKey)

	var payload struct {
		Quote struct {
			Change        string `json:"09. change"`
			ChangePercent string `json:"10. change percent"`
		} `json:"Global Quote"`
	}
	if err := getJSON(ctx, f.client, f.baseURL+"?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch market data: %w", err)
	}

	changePct, err := strconv.ParseFloat(strings.TrimSuffix(payload.Quote.ChangePercent, "%"), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse change percent %q: %w", payload.Quote.ChangePercent, err)
	}

	sentiment := "negative"
	if changePct > 0 {
		sentiment = "positive"
	}

	return &domain.SignalSnapshot{
		Type:      domain.SignalMarket,
		Value:     changePct,
		Label:     sentiment,
		FetchedAt: f.now(),
		TTL:       f.ttl,
	}, nil
}

// NewsFetcher scores recent headlines from NewsAPI by keyword sentiment.
// Value is the mean article score in [-1, 1], Label the overall sentiment.
type NewsFetcher struct {
	apiKey  string
	query   string
	ttl     time.Duration
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewNewsFetcher creates a NewsAPI sentiment fetcher
func NewNewsFetcher(apiKey, query string, ttl time.Duration, client *http.Client) *NewsFetcher {
	return &NewsFetcher{
		apiKey:  apiKey,
		query:   query,
		ttl:     ttl,
		baseURL: newsAPIBaseURL,
		client:  client,
		now:     time.Now,
	}
}

// Fetch retrieves the current news sentiment snapshot
func (f *NewsFetcher) Fetch(ctx context.Context) (*domain.SignalSnapshot, error) {
	params := url.Values{}
	params.Set("q", f.query)
	params.Set("apiKey", f.apiKey)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", "10")
	params.Set("from", f.now().AddDate(0, 0, -1).Format("2006-01-02"))

	var payload struct {
		Articles []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"articles"`
	}
	if err := getJSON(ctx, f.client, f.baseURL+"?"+params.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch news data: %w", err)
	}

	var total float64
	for _, article := range payload.Articles {
		total += scoreSentiment(article.Title + " " + article.Description)
	}

	score := 0.0
	if len(payload.Articles) > 0 {
		score = total / float64(len(payload.Articles))
	}

	return &domain.SignalSnapshot{
		Type:      domain.SignalNews,
		Value:     score,
		Label:     sentimentLabel(score),
		FetchedAt: f.now(),
		TTL:       f.ttl,
	}, nil
}

var (
	positiveKeywords = []string{"growth", "increase", "positive", "success", "profit", "gain"}
	negativeKeywords = []string{"decline", "decrease", "negative", "loss", "drop", "fall"}
)

// scoreSentiment assigns -1, 0 or +1 to a piece of text by keyword counts
func scoreSentiment(text string) float64 {
	text = strings.ToLower(text)

	var positive, negative int
	for _, word := range positiveKeywords {
		if strings.Contains(text, word) {
			positive++
		}
	}
	for _, word := range negativeKeywords {
		if strings.Contains(text, word) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return 1
	case negative > positive:
		return -1
	default:
		return 0
	}
}

func sentimentLabel(score float64) string {
	switch {
	case score > 0:
		return "positive"
	case score < 0:
		return "negative"
	default:
		return "neutral"
	}
}

// StaticFetcher returns a fixed reading with a fresh timestamp on every
// fetch. It backs keyless development runs and tests.
type StaticFetcher struct {
	Type  domain.SignalType
	Value float64
	Label string
	TTL   time.Duration
}

// Fetch returns the configured snapshot stamped with the current time
func (f *StaticFetcher) Fetch(ctx context.Context) (*domain.SignalSnapshot, error) {
	return &domain.SignalSnapshot{
		Type:      f.Type,
		Value:     f.Value,
		Label:     f.Label,
		FetchedAt: time.Now(),
		TTL:       f.TTL,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
