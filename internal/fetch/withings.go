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

// Withings measure type codes
const (
	withingsWeight    = 1
	withingsDiastolic = 9
	withingsSystolic  = 10
	withingsPulse     = 11
)

// Withings reads measure groups from the Withings Measure API
type Withings struct {
	*base
}

// Kinds lists the data kinds Withings serves
func (w *Withings) Kinds() []Kind {
	return []Kind{KindWeight, KindHeartRate, KindBloodPressure}
}

type withingsMeasureResponse struct {
	Status int `json:"status"`
	Body   struct {
		MeasureGroups []struct {
			Date     int64 `json:"date"`
			Measures []struct {
				Value float64 `json:"value"`
				Type  int     `json:"type"`
				Unit  int     `json:"unit"`
			} `json:"measures"`
		} `json:"measuregrps"`
	} `json:"body"`
}

// Fetch runs getmeas over [start, end]
func (w *Withings) Fetch(ctx context.Context, kind Kind, start, end time.Time) ([]health.Reading, error) {
	if err := supports(w, kind); err != nil {
		return nil, err
	}
	hc, err := w.client(ctx)
	if err != nil {
		return nil, err
	}

	types := map[Kind]string{
		KindWeight:        strconv.Itoa(withingsWeight),
		KindHeartRate:     strconv.Itoa(withingsPulse),
		KindBloodPressure: strconv.Itoa(withingsSystolic) + "," + strconv.Itoa(withingsDiastolic),
	}
	form := url.Values{
		"action":    {"getmeas"},
		"meastypes": {types[kind]},
		"category":  {"1"},
		"startdate": {strconv.FormatInt(start.Unix(), 10)},
		"enddate":   {strconv.FormatInt(end.Unix(), 10)},
	}

	var resp withingsMeasureResponse
	if !w.do(ctx, hc, request{
		method:      http.MethodPost,
		path:        "/measure",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &resp) {
		return []health.Reading{}, nil
	}
	if resp.Status != 0 {
		w.opts.logger.Error("withings measure request rejected", "status", resp.Status)
		return []health.Reading{}, nil
	}

	out := []health.Reading{}
	for _, grp := range resp.Body.MeasureGroups {
		ts := time.Unix(grp.Date, 0)
		values := make(map[int]float64, len(grp.Measures))
		for _, m := range grp.Measures {
			values[m.Type] = scale(m.Value, m.Unit)
		}

		switch kind {
		case KindWeight:
			if v, ok := values[withingsWeight]; ok {
				out = append(out, health.New("withings", ts, health.Weight, v))
			}
		case KindHeartRate:
			if v, ok := values[withingsPulse]; ok {
				out = append(out, health.New("withings", ts, health.HeartRate, v))
			}
		case KindBloodPressure:
			if sys, ok := values[withingsSystolic]; ok {
				r := health.New("withings", ts, health.BloodPressure, sys)
				if dia, ok := values[withingsDiastolic]; ok {
					r = r.WithMetadata("diastolic", dia)
				}
				out = append(out, r.WithMetadata("systolic", sys))
			}
		}
	}
	return out, nil
}

// scale applies a Withings power-of-ten unit exponent
func scale(value float64, exp int) float64 {
	if exp < 0 {
		return value / math.Pow10(-exp)
	}
	return value * math.Pow10(exp)
}
