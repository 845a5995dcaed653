package fetch

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wrale/healthbot-connect/internal/health"
)

const stravaPageSize = 100

// Strava reads athlete activities from the Strava v3 API
type Strava struct {
	*base
}

// Kinds lists the data kinds Strava serves
func (s *Strava) Kinds() []Kind {
	return []Kind{KindActivity, KindHeartRate}
}

type stravaActivity struct {
	Name             string    `json:"name"`
	SportType        string    `json:"sport_type"`
	StartDate        time.Time `json:"start_date"`
	MovingTime       float64   `json:"moving_time"` // seconds
	Distance         float64   `json:"distance"`    // meters
	AverageHeartrate *float64  `json:"average_heartrate"`
}

// Fetch lists activities started within [start, end]. Activity readings
// carry moving time in minutes; heart rate readings the activity average.
func (s *Strava) Fetch(ctx context.Context, kind Kind, start, end time.Time) ([]health.Reading, error) {
	if err := supports(s, kind); err != nil {
		return nil, err
	}
	hc, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	var activities []stravaActivity
	if !s.do(ctx, hc, request{
		method: http.MethodGet,
		path:   "/athlete/activities",
		query: url.Values{
			"after":    {strconv.FormatInt(start.Unix(), 10)},
			"before":   {strconv.FormatInt(end.Unix(), 10)},
			"per_page": {strconv.Itoa(stravaPageSize)},
		},
	}, &activities) {
		return []health.Reading{}, nil
	}

	out := []health.Reading{}
	for _, a := range activities {
		switch kind {
		case KindActivity:
			r := health.New("strava", a.StartDate, health.Activity, math.Round(a.MovingTime/60))
			r = r.WithMetadata("name", a.Name)
			r = r.WithMetadata("sportType", a.SportType)
			out = append(out, r.WithMetadata("distanceMeters", a.Distance))
		case KindHeartRate:
			if a.AverageHeartrate == nil {
				continue
			}
			r := health.New("strava", a.StartDate, health.HeartRate, math.Round(*a.AverageHeartrate))
			out = append(out, r.WithMetadata("type", "activity_average"))
		}
	}
	return out, nil
}
