package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/wrale/healthbot-connect/internal/fetch"
	"github.com/wrale/healthbot-connect/internal/health"
	"github.com/wrale/healthbot-connect/internal/validation"
)

// SyncCmd fetches readings from one provider and stores them
type SyncCmd struct {
	Provider string   `short:"p" long:"provider" required:"true" description:"provider id: google_fit, fitbit, oura, withings or strava"`
	Kinds    []string `short:"k" long:"kind" description:"data kind, repeatable; default every kind the provider serves"`
	From     string   `long:"from" description:"range start, RFC 3339 or YYYY-MM-DD (default 7 days before --to)"`
	To       string   `long:"to" description:"range end, RFC 3339 or YYYY-MM-DD (default now)"`
	JSON     bool     `long:"json" description:"print readings as JSON lines"`

	opts *Options
}

// Execute implements flags.Commander
func (c *SyncCmd) Execute(_ []string) error {
	if err := validation.ValidateDeviceID(c.Provider); err != nil {
		return err
	}

	ctx := context.Background()
	rt, err := c.opts.runtime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	kinds, ok := rt.syncer.Kinds(c.Provider)
	if !ok {
		return fmt.Errorf("no data fetcher for provider %q", c.Provider)
	}
	if len(c.Kinds) > 0 {
		kinds = nil
		for _, k := range c.Kinds {
			kinds = append(kinds, fetch.Kind(k))
		}
	}

	start, end, err := validation.ParseRange(c.From, c.To, rt.now())
	if err != nil {
		return err
	}

	var all []health.Reading
	for _, kind := range kinds {
		readings, err := rt.syncer.Sync(ctx, c.Provider, kind, start, end)
		if err != nil {
			return fmt.Errorf("syncing %s %s: %w", c.Provider, kind, err)
		}
		rt.logger.Debug("synced", "provider", c.Provider, "kind", kind, "readings", len(readings))
		all = append(all, readings...)
	}

	rt.logger.Info("sync complete", "provider", c.Provider,
		"from", start.Format(time.RFC3339), "to", end.Format(time.RFC3339), "readings", len(all))
	return printReadings(rt.out, all, c.JSON)
}

// StatusCmd prints the connection status of every catalogue device
type StatusCmd struct {
	opts *Options
}

// Execute implements flags.Commander
func (c *StatusCmd) Execute(_ []string) error {
	ctx := context.Background()
	rt, err := c.opts.runtime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	conns, err := rt.flow.Connections(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tTYPE\tCONFIGURED\tCONNECTED\tLAST SYNC")
	for _, d := range conns {
		last := "-"
		if d.LastSync != nil {
			last = d.LastSync.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\n", d.ID, d.ConnectionType, d.Configured, d.Connected, last)
	}
	return tw.Flush()
}

// ReadingsCmd prints stored readings
type ReadingsCmd struct {
	Type   string `short:"t" long:"type" description:"reading type, e.g. heart_rate or weight"`
	Latest bool   `long:"latest" description:"print only the newest reading of --type"`
	JSON   bool   `long:"json" description:"print readings as JSON lines"`

	opts *Options
}

// Execute implements flags.Commander
func (c *ReadingsCmd) Execute(_ []string) error {
	var typ health.Type
	if c.Type != "" {
		t, err := health.ParseType(c.Type)
		if err != nil {
			return err
		}
		typ = t
	}
	if c.Latest && typ == "" {
		return fmt.Errorf("--latest requires --type")
	}

	ctx := context.Background()
	rt, err := c.opts.runtime(ctx)
	if err != nil {
		return err
	}
	defer rt.close()

	var out []health.Reading
	switch {
	case c.Latest:
		r, err := rt.readings.Latest(ctx, typ)
		if err != nil {
			return err
		}
		if r != nil {
			out = []health.Reading{*r}
		}
	case typ != "":
		out, err = rt.readings.ByType(ctx, typ)
	default:
		out, err = rt.readings.All(ctx)
	}
	if err != nil {
		return err
	}
	return printReadings(rt.out, out, c.JSON)
}

func printReadings(w io.Writer, readings []health.Reading, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, r := range readings {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tSOURCE\tTYPE\tVALUE\tUNIT")
	for _, r := range readings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Format(time.RFC3339), r.Source, r.Type, strconv.FormatFloat(r.Value, 'f', -1, 64), r.Unit)
	}
	return tw.Flush()
}
