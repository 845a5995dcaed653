package fetch

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/wrale/healthbot-connect/internal/health"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

var googleFitSources = map[Kind]string{
	KindSteps:     "derived:com.google.step_count.delta:com.google.android.gms:estimated_steps",
	KindHeartRate: "derived:com.google.heart_rate.bpm:com.google.android.gms:merge_heart_rate_bpm",
	KindSleep:     "derived:com.google.sleep.segment:com.google.android.gms:merged",
	KindWeight:    "derived:com.google.weight:com.google.android.gms:merge_weight",
}

// GoogleFit reads daily aggregates from the Fitness REST API
type GoogleFit struct {
	*base
}

// Kinds lists the data kinds Google Fit serves
func (g *GoogleFit) Kinds() []Kind {
	return []Kind{KindSteps, KindHeartRate, KindSleep, KindWeight}
}

type googleFitAggregateRequest struct {
	AggregateBy []struct {
		DataSourceID string `json:"dataSourceId"`
	} `json:"aggregateBy"`
	BucketByTime struct {
		DurationMillis int64 `json:"durationMillis"`
	} `json:"bucketByTime"`
	StartTimeMillis int64 `json:"startTimeMillis"`
	EndTimeMillis   int64 `json:"endTimeMillis"`
}

type googleFitAggregateResponse struct {
	Bucket []struct {
		StartTimeMillis string `json:"startTimeMillis"`
		Dataset         []struct {
			Point []struct {
				StartTimeNanos string `json:"startTimeNanos"`
				EndTimeNanos   string `json:"endTimeNanos"`
				Value          []struct {
					IntVal *float64 `json:"intVal"`
					FpVal  *float64 `json:"fpVal"`
				} `json:"value"`
			} `json:"point"`
		} `json:"dataset"`
	} `json:"bucket"`
}

// Fetch runs one aggregate query with daily buckets over [start, end]
func (g *GoogleFit) Fetch(ctx context.Context, kind Kind, start, end time.Time) ([]health.Reading, error) {
	if err := supports(g, kind); err != nil {
		return nil, err
	}
	hc, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	var body googleFitAggregateRequest
	body.AggregateBy = append(body.AggregateBy, struct {
		DataSourceID string `json:"dataSourceId"`
	}{DataSourceID: googleFitSources[kind]})
	body.BucketByTime.DurationMillis = dayMillis
	body.StartTimeMillis = start.UnixMilli()
	body.EndTimeMillis = end.UnixMilli()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var resp googleFitAggregateResponse
	if !g.do(ctx, hc, request{
		method:      http.MethodPost,
		path:        "/users/me/dataset:aggregate",
		body:        payload,
		contentType: "application/json",
	}, &resp) {
		return []health.Reading{}, nil
	}
	return parseGoogleFit(resp, kind), nil
}

// Sleep segment types that are not asleep
const (
	sleepAwake    = 1
	sleepOutOfBed = 3
)

func parseGoogleFit(resp googleFitAggregateResponse, kind Kind) []health.Reading {
	if kind == KindSleep {
		return parseGoogleFitSleep(resp)
	}
	out := []health.Reading{}
	for _, b := range resp.Bucket {
		for _, ds := range b.Dataset {
			for _, p := range ds.Point {
				if len(p.Value) == 0 {
					continue
				}
				nanos, err := strconv.ParseInt(p.StartTimeNanos, 10, 64)
				if err != nil {
					continue
				}

				v := p.Value[0]
				var value float64
				switch {
				case v.IntVal != nil && *v.IntVal != 0:
					value = *v.IntVal
				case v.FpVal != nil:
					value = *v.FpVal
				}

				ts := time.UnixMilli(nanos / int64(time.Millisecond))
				out = append(out, health.New("google_fit", ts, health.Type(kind), value))
			}
		}
	}
	return out
}

// parseGoogleFitSleep sums the asleep segments of each bucket into minutes.
// Segment values are stage codes, not durations.
func parseGoogleFitSleep(resp googleFitAggregateResponse) []health.Reading {
	out := []health.Reading{}
	for _, b := range resp.Bucket {
		bucketMillis, err := strconv.ParseInt(b.StartTimeMillis, 10, 64)
		if err != nil {
			continue
		}

		var asleep time.Duration
		segments := 0
		for _, ds := range b.Dataset {
			for _, p := range ds.Point {
				if len(p.Value) == 0 || p.Value[0].IntVal == nil {
					continue
				}
				if stage := int(*p.Value[0].IntVal); stage == sleepAwake || stage == sleepOutOfBed {
					continue
				}
				startNanos, err := strconv.ParseInt(p.StartTimeNanos, 10, 64)
				if err != nil {
					continue
				}
				endNanos, err := strconv.ParseInt(p.EndTimeNanos, 10, 64)
				if err != nil || endNanos <= startNanos {
					continue
				}
				asleep += time.Duration(endNanos - startNanos)
				segments++
			}
		}
		if segments == 0 {
			continue
		}

		r := health.New("google_fit", time.UnixMilli(bucketMillis), health.Sleep, math.Round(asleep.Minutes()))
		out = append(out, r.WithMetadata("segments", segments))
	}
	return out
}
