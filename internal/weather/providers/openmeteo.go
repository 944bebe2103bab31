package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/i474232898/forecast-text-service/internal/failure"
	"github.com/i474232898/forecast-text-service/internal/weather"
)

// DefaultOpenMeteoURL requests Berlin's current and hourly temperature,
// humidity and wind speed.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast?latitude=52.52&longitude=13.41&current=temperature_2m,wind_speed_10m&hourly=temperature_2m,relative_humidity_2m,wind_speed_10m"

const (
	msgUnreachable  = "Connection to the upstream is unreachable"
	msgNullResponse = "Received null response from upstream API"
)

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name   string
	apiURL string
	client *http.Client
}

func NewOpenMeteoProvider(client *http.Client, apiURL string) *OpenMeteoProvider {
	if apiURL == "" {
		apiURL = DefaultOpenMeteoURL
	}
	return &OpenMeteoProvider{
		name:   "openmeteo",
		apiURL: apiURL,
		client: client,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Fetch retrieves the forecast document. Every transport, status or decoding
// problem is reported as an upstream failure.
func (p *OpenMeteoProvider) Fetch(ctx context.Context) (*weather.Document, error) {
	log.Printf("INFO: fetching forecast data from %s", p.name)

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, p.apiURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequest(ctx, p.client, buildRequest)
	if err != nil {
		log.Printf("ERROR: %s request failed: %v", p.name, err)
		return nil, failure.Upstream(msgUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("ERROR: %s response read failed: %v", p.name, err)
		return nil, failure.Upstream(msgUnreachable, err)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		log.Printf("ERROR: %s returned an empty payload", p.name)
		return nil, failure.Upstream(msgNullResponse, nil)
	}

	var doc weather.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		log.Printf("ERROR: %s response decode failed: %v", p.name, err)
		return nil, failure.Upstream(msgUnreachable, fmt.Errorf("decode %s response: %w", p.name, err))
	}

	log.Printf("INFO: fetched forecast data from %s", p.name)
	return &doc, nil
}
