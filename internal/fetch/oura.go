package fetch

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/wrale/healthbot-connect/internal/health"
)

// Oura reads daily collections from the Oura v2 API
type Oura struct {
	*base
}

// Kinds lists the data kinds Oura serves
func (o *Oura) Kinds() []Kind {
	return []Kind{KindSleep, KindReadiness, KindActivity}
}

type ouraCollection struct {
	Data []struct {
		Day                  string   `json:"day"`
		Score                *float64 `json:"score"`
		TotalSleepDuration   *float64 `json:"total_sleep_duration"` // seconds
		RemSleepDuration     *float64 `json:"rem_sleep_duration"`
		DeepSleepDuration    *float64 `json:"deep_sleep_duration"`
		Steps                *float64 `json:"steps"`
		ActiveCalories       *float64 `json:"active_calories"`
		TemperatureDeviation *float64 `json:"temperature_deviation"`
	} `json:"data"`
}

// Fetch reads one collection for the dates covering [start, end]
func (o *Oura) Fetch(ctx context.Context, kind Kind, start, end time.Time) ([]health.Reading, error) {
	if err := supports(o, kind); err != nil {
		return nil, err
	}
	hc, err := o.client(ctx)
	if err != nil {
		return nil, err
	}

	var resp ouraCollection
	if !o.do(ctx, hc, request{
		method: http.MethodGet,
		path:   "/v2/usercollection/" + string(kind),
		query: url.Values{
			"start_date": {start.UTC().Format(time.DateOnly)},
			"end_date":   {end.UTC().Format(time.DateOnly)},
		},
	}, &resp) {
		return []health.Reading{}, nil
	}

	out := []health.Reading{}
	for _, item := range resp.Data {
		day, err := time.Parse(time.DateOnly, item.Day)
		if err != nil {
			continue
		}

		var r health.Reading
		switch kind {
		case KindSleep:
			if item.TotalSleepDuration == nil {
				continue
			}
			r = health.New("oura", day, health.Sleep, math.Round(*item.TotalSleepDuration/60))
			r = withOptional(r, "remSleep", item.RemSleepDuration)
			r = withOptional(r, "deepSleep", item.DeepSleepDuration)
		case KindReadiness:
			if item.TemperatureDeviation == nil {
				continue
			}
			r = health.New("oura", day, health.Temperature, *item.TemperatureDeviation)
			r = r.WithMetadata("kind", "deviation")
		case KindActivity:
			if item.Steps == nil {
				continue
			}
			r = health.New("oura", day, health.Steps, *item.Steps)
			r = withOptional(r, "activeCalories", item.ActiveCalories)
		}
		out = append(out, withOptional(r, "score", item.Score))
	}
	return out, nil
}

func withOptional(r health.Reading, key string, v *float64) health.Reading {
	if v == nil {
		return r
	}
	return r.WithMetadata(key, *v)
}
