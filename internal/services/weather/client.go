package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/LeonardoBeccarini/harvestify/pkg/upstream"
)

// DefaultURL is the OpenWeatherMap current-weather endpoint.
const DefaultURL = "http://api.openweathermap.org/data/2.5/weather"

var (
	ErrMissingKey = errors.New("weather: missing api key")
	ErrEmptyCity  = errors.New("weather: empty city")
)

// Reading is the current temperature (°C, 2 decimals) and relative humidity (%).
type Reading struct {
	TemperatureC float64 `json:"temperature_c"`
	HumidityPct  int     `json:"humidity_pct"`
}

// Client looks up current weather by city name.
type Client interface {
	Lookup(ctx context.Context, city string) (Reading, bool, error)
}

type owmResp struct {
	Cod  json.RawMessage `json:"cod"`
	Main *struct {
		Temp     float64 `json:"temp"` // kelvin
		Humidity float64 `json:"humidity"`
	} `json:"main"`
}

// OWMClient talks to OpenWeatherMap through a breaker-guarded upstream.
type OWMClient struct {
	apiKey string
	up     *upstream.Upstream
}

func NewOWMClient(key string, up *upstream.Upstream) *OWMClient {
	return &OWMClient{apiKey: key, up: up}
}

// Lookup returns ok=false with a nil error when the city is unknown.
func (c *OWMClient) Lookup(ctx context.Context, city string) (Reading, bool, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Reading{}, false, ErrEmptyCity
	}
	if c.apiKey == "" {
		return Reading{}, false, ErrMissingKey
	}

	res, err := c.up.Get(ctx, "", map[string]string{"appid": c.apiKey, "q": city})
	if err != nil {
		return Reading{}, false, fmt.Errorf("weather lookup %q: %w", city, err)
	}
	if res.Status == http.StatusNotFound {
		return Reading{}, false, nil
	}

	var out owmResp
	if err := res.Decode(&out); err != nil {
		return Reading{}, false, fmt.Errorf("weather decode: %w", err)
	}
	if codeOf(out.Cod) == "404" {
		return Reading{}, false, nil
	}
	if res.Status < 200 || res.Status >= 300 {
		return Reading{}, false, fmt.Errorf("owm status %d (cod %s)", res.Status, codeOf(out.Cod))
	}
	if out.Main == nil {
		return Reading{}, false, errors.New("weather: no main block in response")
	}

	return Reading{
		TemperatureC: kelvinToCelsius(out.Main.Temp),
		HumidityPct:  int(out.Main.Humidity),
	}, true, nil
}

// codeOf accepts cod as either a JSON string or number.
func codeOf(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

func kelvinToCelsius(k float64) float64 {
	return math.Round((k-273.15)*100) / 100
}
