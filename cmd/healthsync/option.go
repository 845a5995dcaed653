package main

import (
	"context"
	"io"
	"log/slog"
)

// Options is the root command that groups sub-commands. The struct tags are
// interpreted by github.com/jessevdk/go-flags.
type Options struct {
	Verbose bool `short:"v" long:"verbose" description:"log debug output"`

	Sync     *SyncCmd     `command:"sync" description:"Fetch provider data into the reading store"`
	Status   *StatusCmd   `command:"status" description:"Show the connection status of every device"`
	Readings *ReadingsCmd `command:"readings" description:"Print stored readings"`

	out    io.Writer
	logOut io.Writer
	open   opener
}

// Init instantiates the sub-command referenced by the first argument so that
// the parser can populate its fields.
func (o *Options) Init(firstArg string) {
	switch firstArg {
	case "sync":
		o.Sync = &SyncCmd{opts: o}
	case "status":
		o.Status = &StatusCmd{opts: o}
	case "readings":
		o.Readings = &ReadingsCmd{opts: o}
	}
}

// runtime opens the services for the selected command. The caller closes it.
func (o *Options) runtime(ctx context.Context) (*runtime, error) {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(o.logOut, &slog.HandlerOptions{Level: level}))

	rt, err := o.open(ctx, logger)
	if err != nil {
		return nil, err
	}
	rt.out = o.out
	return rt, nil
}
