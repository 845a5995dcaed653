package fetch

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/wrale/healthbot-connect/internal/health"
)

// maxFitbitDays caps how many per-day calls one fetch issues
const maxFitbitDays = 31

// Fitbit reads per-day summaries from the Fitbit Web API
type Fitbit struct {
	*base
}

// Kinds lists the data kinds Fitbit serves
func (f *Fitbit) Kinds() []Kind {
	return []Kind{KindSteps, KindHeartRate, KindSleep}
}

type fitbitActivities struct {
	Summary struct {
		Steps float64 `json:"steps"`
	} `json:"summary"`
}

type fitbitHeart struct {
	ActivitiesHeart []struct {
		Value struct {
			RestingHeartRate float64 `json:"restingHeartRate"`
		} `json:"value"`
	} `json:"activities-heart"`
}

type fitbitSleep struct {
	Sleep []struct {
		Duration float64 `json:"duration"` // milliseconds
	} `json:"sleep"`
}

// Fetch issues one date-path call per UTC day in [start, end]
func (f *Fitbit) Fetch(ctx context.Context, kind Kind, start, end time.Time) ([]health.Reading, error) {
	if err := supports(f, kind); err != nil {
		return nil, err
	}
	hc, err := f.client(ctx)
	if err != nil {
		return nil, err
	}

	out := []health.Reading{}
	for i, day := 0, truncateDay(start); !day.After(end) && i < maxFitbitDays; i, day = i+1, day.AddDate(0, 0, 1) {
		if r, ok := f.day(ctx, hc, kind, day); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Fitbit) day(ctx context.Context, hc *http.Client, kind Kind, day time.Time) (health.Reading, bool) {
	date := day.Format(time.DateOnly)

	switch kind {
	case KindSteps:
		var resp fitbitActivities
		if !f.do(ctx, hc, request{method: http.MethodGet, path: "/1/user/-/activities/date/" + date + ".json"}, &resp) {
			return health.Reading{}, false
		}
		if resp.Summary.Steps == 0 {
			return health.Reading{}, false
		}
		return health.New("fitbit", day, health.Steps, resp.Summary.Steps), true

	case KindHeartRate:
		var resp fitbitHeart
		if !f.do(ctx, hc, request{method: http.MethodGet, path: "/1/user/-/activities/heart/date/" + date + "/1d.json"}, &resp) {
			return health.Reading{}, false
		}
		if len(resp.ActivitiesHeart) == 0 || resp.ActivitiesHeart[0].Value.RestingHeartRate == 0 {
			return health.Reading{}, false
		}
		r := health.New("fitbit", day, health.HeartRate, resp.ActivitiesHeart[0].Value.RestingHeartRate)
		return r.WithMetadata("type", "resting"), true

	case KindSleep:
		var resp fitbitSleep
		if !f.do(ctx, hc, request{method: http.MethodGet, path: "/1.2/user/-/sleep/date/" + date + ".json"}, &resp) {
			return health.Reading{}, false
		}
		if len(resp.Sleep) == 0 {
			return health.Reading{}, false
		}
		return health.New("fitbit", day, health.Sleep, math.Round(resp.Sleep[0].Duration/60000)), true
	}
	return health.Reading{}, false
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
