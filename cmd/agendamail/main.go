package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"agendamail/internal/caldav"
	"agendamail/internal/capture"
	"agendamail/internal/config"
	"agendamail/internal/email"
	"agendamail/internal/ics"
	appLog "agendamail/internal/log"
	"agendamail/internal/pipeline"
	"agendamail/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	date       string
	pngPath    string
	preview    bool
	once       bool
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	driver := buildDriver(ctx, conf)

	appLog.Info("agendamail starting",
		"timezone", driver.ZoneName,
		"sources", len(driver.Sources),
		"preview", flags.preview,
		"once", flags.once,
	)

	if flags.once || flags.preview || flags.pngPath != "" || flags.date != "" {
		return runOnce(ctx, conf, driver, flags)
	}
	return serve(ctx, conf, driver)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/agendamail/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.date, "date", "", "Target date YYYY-MM-DD (default: today in the detected timezone)")
	flag.StringVar(&cfg.pngPath, "png", "", "Write a PNG screenshot of the agenda HTML to this path (no email sent)")
	flag.BoolVar(&cfg.preview, "preview", false, "Print the agenda HTML to stdout (no email sent)")
	flag.BoolVar(&cfg.once, "once", false, "Compose and send one agenda email, then exit")

	flag.Parse()
	return cfg
}

// buildDriver resolves the timezone and assembles the retrieval sources.
// A source that cannot be set up is skipped with a warning; the run still
// produces an agenda from whatever remains.
func buildDriver(ctx context.Context, conf *config.Config) *pipeline.Driver {
	var davClient *caldav.Client
	if conf.CalDAV != nil && conf.CalDAV.URL != "" {
		c, err := caldav.NewClient(conf.CalDAV.URL, conf.CalDAV.Username, conf.CalDAV.Password)
		if err != nil {
			appLog.Warn("caldav account unavailable", "reason", err)
		} else {
			davClient = c
		}
	}

	zoneName := conf.Timezone
	if zoneName == "" {
		if davClient != nil {
			zoneName = davClient.DetectTimezone(ctx, conf.DefaultTimezone)
		} else {
			zoneName = conf.DefaultTimezone
		}
	}
	zone, err := time.LoadLocation(zoneName)
	if err != nil {
		appLog.Warn("unusable timezone; falling back to UTC", "timezone", zoneName, "reason", err)
		zoneName = "UTC"
		zone = time.UTC
	}

	var sources []pipeline.Source
	if davClient != nil {
		davSources, err := davClient.Sources(ctx, conf.Calendars)
		if err != nil {
			appLog.Warn("caldav calendars unavailable", "reason", err)
		} else {
			sources = append(sources, davSources...)
		}
	}

	fetcher := ics.NewFetcher(conf.CacheDir)
	for _, feed := range conf.Feeds {
		if feed.URL == "" {
			continue
		}
		sources = append(sources, ics.NewFeed(feed.Name, feed.URL, fetcher))
	}

	return &pipeline.Driver{
		Sources:     sources,
		Zone:        zone,
		ZoneName:    zoneName,
		DisplayName: conf.DisplayName,
	}
}

// runOnce performs a single compose-and-deliver (or preview) cycle.
func runOnce(ctx context.Context, conf *config.Config, driver *pipeline.Driver, flags flagConfig) int {
	var override time.Time
	if flags.date != "" {
		t, err := time.ParseInLocation("2006-01-02", flags.date, driver.Zone)
		if err != nil {
			appLog.Error("invalid -date value", err, "date", flags.date)
			return 1
		}
		override = t
	}

	result := driver.Build(ctx, override)

	if flags.pngPath != "" {
		err := capture.PNG(ctx, capture.Options{HTML: result.HTML, OutputPath: flags.pngPath})
		if err != nil {
			appLog.Error("png capture failed", err, "path", flags.pngPath)
			return 1
		}
		appLog.Info("agenda screenshot written", "path", flags.pngPath)
	}

	if flags.preview {
		sink := &email.PreviewSink{Out: os.Stdout}
		_ = sink.Send(ctx, email.Message{Subject: result.Subject, HTML: result.HTML, Text: result.Text})
		return 0
	}
	if flags.pngPath != "" && !flags.once {
		return 0
	}

	if err := deliver(ctx, conf, result); err != nil {
		appLog.Error("agenda email not delivered", err, "to", conf.Email.To)
		return 1
	}
	return 0
}

// serve runs the scheduled daily send plus the preview web server until
// the context is canceled.
func serve(ctx context.Context, conf *config.Config, driver *pipeline.Driver) int {
	c := cron.New()
	_, err := c.AddFunc(conf.Schedule, func() {
		result := driver.Build(ctx, time.Time{})
		if err := deliver(ctx, conf, result); err != nil {
			appLog.Error("scheduled agenda email not delivered", err, "to", conf.Email.To)
		}
	})
	if err != nil {
		appLog.Error("invalid schedule", err, "schedule", conf.Schedule)
		return 1
	}
	c.Start()
	defer c.Stop()

	appLog.Info("scheduler running", "schedule", conf.Schedule)

	var auth *web.BasicAuth
	if conf.BasicAuth != nil {
		auth = &web.BasicAuth{Username: conf.BasicAuth.Username, Password: conf.BasicAuth.Password}
	}
	if err := web.Run(ctx, conf.Listen, driver, auth); err != nil {
		appLog.Error("preview server failed", err, "listen", conf.Listen)
		return 1
	}

	appLog.Info("agendamail exiting")
	return 0
}

// deliver hands the composed agenda to the configured provider. Transport
// failures surface to the caller; they are never retried here.
func deliver(ctx context.Context, conf *config.Config, result pipeline.Agenda) error {
	var sender email.Sender
	switch conf.Email.Provider {
	case "resend":
		sender = email.NewResendSender(conf.Email.ResendAPIKey, conf.Email.From)
	default:
		sender = &email.SMTPSender{
			Host:     conf.Email.SMTPHost,
			Port:     conf.Email.SMTPPort,
			Username: conf.Email.SMTPUsername,
			Password: conf.Email.SMTPPassword,
			From:     conf.Email.From,
		}
	}

	err := sender.Send(ctx, email.Message{
		To:      conf.Email.To,
		Subject: result.Subject,
		HTML:    result.HTML,
		Text:    result.Text,
	})
	if err != nil {
		return err
	}

	appLog.Info("agenda email sent", "to", conf.Email.To, "events", result.EventCount)
	return nil
}
