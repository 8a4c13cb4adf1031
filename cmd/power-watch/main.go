// Command power-watch monitors host power, announces confirmed transitions to
// a Telegram chat, and answers /status queries from the configured admin.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/power-watch/internal/bot"
	"github.com/sweeney/power-watch/internal/config"
	"github.com/sweeney/power-watch/internal/logic"
	"github.com/sweeney/power-watch/internal/metrics"
	"github.com/sweeney/power-watch/internal/notify"
	"github.com/sweeney/power-watch/internal/sensor"
	"github.com/sweeney/power-watch/internal/status"
	"github.com/sweeney/power-watch/internal/store"
	"github.com/sweeney/power-watch/internal/web"
)

// options collects the flag-derived tunables. Identity and secrets come from
// the environment via internal/config.
type options struct {
	poll         time.Duration
	samples      int
	hold         time.Duration
	source       string
	pin          int
	invert       bool
	broker       string
	topic        string
	alarmMaxAge  time.Duration
	httpAddr     string
	heartbeat    time.Duration
	sendAttempts int
	retryBase    time.Duration
	retryMax     time.Duration
	botTimeout   time.Duration
	staleAfter   time.Duration
}

func main() {
	var opts options
	flag.DurationVar(&opts.poll, "poll", time.Second, "sensor polling interval")
	flag.IntVar(&opts.samples, "debounce-samples", 3, "consecutive matching samples required to confirm a transition")
	flag.DurationVar(&opts.hold, "debounce-hold", 2*time.Second, "minimum time a candidate state must hold before confirming")
	flag.StringVar(&opts.source, "source", "gpio", `sensor source: "gpio" or "mqtt"`)
	flag.IntVar(&opts.pin, "pin", sensor.DefaultPin, "BCM pin number for the mains-sense input")
	flag.BoolVar(&opts.invert, "invert", false, "treat a low pin level as mains present")
	flag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (source=mqtt)")
	flag.StringVar(&opts.topic, "alarm-topic", sensor.DefaultAlarmTopic, "MQTT power alarm topic (source=mqtt)")
	flag.DurationVar(&opts.alarmMaxAge, "alarm-max-age", 2*time.Minute, "treat alarm readings older than this as stale (0 to disable)")
	flag.StringVar(&opts.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 30*time.Second, "store heartbeat interval (0 to disable)")
	flag.IntVar(&opts.sendAttempts, "send-attempts", 4, "delivery attempts per notification before giving up")
	flag.DurationVar(&opts.retryBase, "retry-base", 2*time.Second, "base delay for retry backoff")
	flag.DurationVar(&opts.retryMax, "retry-max", 30*time.Second, "cap for retry backoff")
	flag.DurationVar(&opts.botTimeout, "bot-poll-timeout", 25*time.Second, "Telegram long-poll timeout")
	flag.DurationVar(&opts.staleAfter, "stale-after", time.Minute, "drop bot commands older than this")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log := newLogger(*logLevel)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, opts, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg config.Config, opts options, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewRedis(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = st.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("store unreachable at %s: %w", cfg.RedisAddr, err)
	}

	reader, err := newReader(opts)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer reader.Close()

	m := metrics.New(nil)

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:          opts.poll.Milliseconds(),
		DebounceSamples: opts.samples,
		DebounceHoldMs:  opts.hold.Milliseconds(),
		HeartbeatMs:     opts.heartbeat.Milliseconds(),
		Source:          opts.source,
		Broker:          brokerLabel(opts),
		RedisAddr:       cfg.RedisAddr,
		HTTPAddr:        opts.httpAddr,
	})
	tracker.SetStoreHealthy(true)

	client := bot.NewClient(cfg.BotToken)
	handler := bot.NewHandler(st, client, cfg.AdminUserID, opts.staleAfter, log)
	poller := bot.NewPoller(client, st, handler, opts.botTimeout, log)

	retry := store.RetryPolicy{Attempts: opts.sendAttempts, Base: opts.retryBase, Max: opts.retryMax}
	dispatcher := notify.NewDispatcher(st, client, cfg.ChatID, retry, m, log)

	// Tell the chat why we were away before the heartbeat loop overwrites
	// the evidence.
	if err := dispatcher.ReportStartupGap(ctx, time.Now()); err != nil {
		log.Warn("startup report failed", "error", err)
	}

	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker, m.Registry())
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", opts.httpAddr)
	}

	rec, err := st.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load persisted state: %w", err)
	}
	detector := seedDetector(rec, opts, time.Now(), log)

	log.Info("started",
		"poll", opts.poll, "samples", opts.samples, "hold", opts.hold,
		"source", opts.source, "redis", cfg.RedisAddr, "chat_id", cfg.ChatID)

	transitions := make(chan logic.Transition, 16)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx, transitions)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("bot poller stopped", "error", err)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		heartbeatLoop(ctx, st, opts.heartbeat, m, log)
	}()

	ticker := time.NewTicker(opts.poll)
	defer ticker.Stop()

	err = runLoop(ctx, reader, st, detector, transitions, retry, tracker, m, log, time.Now, ticker.C)
	close(transitions)
	wg.Wait()
	return err
}

// seedDetector builds the detector from the persisted record, or an UNKNOWN
// baseline on first boot.
func seedDetector(rec *store.Record, opts options, now time.Time, log *slog.Logger) *logic.Detector {
	window := logic.Window{MinSamples: opts.samples, MinHold: opts.hold}
	if rec == nil {
		log.Info("no persisted state, starting from UNKNOWN")
		return logic.NewDetector(window, logic.StateUnknown, now)
	}
	log.Info("resuming from persisted state", "state", rec.State, "since", rec.Since)
	return logic.NewDetector(window, rec.State, rec.Since)
}

func newReader(opts options) (sensor.Reader, error) {
	switch opts.source {
	case "gpio":
		return sensor.NewGPIOReader(opts.pin, opts.invert)
	case "mqtt":
		return sensor.NewMQTTSource(opts.broker, opts.topic, opts.alarmMaxAge)
	default:
		return nil, fmt.Errorf("unknown sensor source %q", opts.source)
	}
}

func brokerLabel(opts options) string {
	if opts.source != "mqtt" {
		return ""
	}
	return opts.broker
}

// runLoop samples the sensor on every tick, feeds readings through the
// detector, persists confirmed transitions, and hands them to the dispatch
// channel. Sensor errors and failed persists never stop the loop.
func runLoop(ctx context.Context, reader sensor.Reader, st store.Store, detector *logic.Detector, transitions chan<- logic.Transition, retry store.RetryPolicy, tracker *status.Tracker, m *metrics.Metrics, log *slog.Logger, now func() time.Time, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil

		case <-tick:
			t := now()
			up, err := reader.Read()
			if err != nil {
				m.IncSensorError()
				log.Warn("sensor read error", "error", err)
			}
			if tracker != nil {
				tracker.SetSensorHealthy(err == nil)
			}

			tr := detector.Process(logic.ReadingFromSensor(up, err, t))
			if tr != nil {
				m.IncTransition(string(tr.To))
				log.Info("power transition",
					"correlation_id", tr.CorrelationID(), "from", tr.From, "to", tr.To)

				rec := store.Record{State: tr.To, Since: tr.At}
				saveErr := retry.Do(ctx, func(ctx context.Context) error {
					return st.SaveState(ctx, rec)
				})
				if saveErr != nil {
					// The detector already advanced; keep running on the
					// in-memory state and surface the failure loudly.
					m.IncStoreError()
					log.Error("persist state failed", "correlation_id", tr.CorrelationID(), "error", saveErr)
				}
				if tracker != nil {
					tracker.SetStoreHealthy(saveErr == nil)
				}

				select {
				case transitions <- *tr:
				case <-ctx.Done():
					return nil
				}
			}

			if tracker != nil {
				state, since := detector.Confirmed()
				tracker.Update(state, since, state != logic.StateUnknown, detector.Counts())
			}
		}
	}
}

// heartbeatLoop periodically records liveness in the store so the next boot
// can tell a power outage from a redeploy.
func heartbeatLoop(ctx context.Context, st store.Store, interval time.Duration, m *metrics.Metrics, log *slog.Logger) {
	if interval <= 0 {
		return
	}

	beat := func() {
		if err := st.Heartbeat(ctx, time.Now()); err != nil {
			m.IncStoreError()
			log.Warn("heartbeat write failed", "error", err)
		}
	}
	beat()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			beat()
		}
	}
}
