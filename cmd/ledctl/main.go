// Command ledctl drives one LED channel and accepts commands over MQTT and HTTP.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/sweeney/ledctl/internal/command"
	"github.com/sweeney/ledctl/internal/config"
	"github.com/sweeney/ledctl/internal/events"
	"github.com/sweeney/ledctl/internal/gpio"
	"github.com/sweeney/ledctl/internal/led"
	"github.com/sweeney/ledctl/internal/metrics"
	"github.com/sweeney/ledctl/internal/mqtt"
	"github.com/sweeney/ledctl/internal/pwm"
	"github.com/sweeney/ledctl/internal/status"
	"github.com/sweeney/ledctl/internal/web"
)

// updateInterval is how often the loop calls Update. It matches the finest
// fade step so a 1 ms fade runs at full speed.
const updateInterval = time.Millisecond

// requestQueue bounds commands waiting for the loop.
const requestQueue = 16

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var printState bool

	cmd := &cobra.Command{
		Use:   "ledctl",
		Short: "Drive one LED channel from MQTT and HTTP commands",
		Long: `Runs a single LED channel (binary, PWM or high-resolution PWM) with timed ` +
			`flashes and fades. Commands arrive as JSON on ledctl/<name>/set or POST /command; ` +
			`state is published retained on ledctl/<name>/state.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if printState {
				data, err := cfg.TOML()
				if err != nil {
					return fmt.Errorf("render config: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), string(data))
				return nil
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	cmd.Flags().BoolVar(&printState, "print-state", false, "print the resolved configuration and exit")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// outputDriver is a led.Driver that holds an OS resource.
type outputDriver interface {
	led.Driver
	Close() error
}

func openDriver(cfg config.Config) (outputDriver, int, error) {
	switch cfg.LED.Driver {
	case config.DriverGPIOCDev:
		offset, err := cfg.LineOffset()
		if err != nil {
			return nil, 0, fmt.Errorf("pin %q: %w", cfg.LED.Pin, err)
		}
		d, err := gpio.NewRealDriver(cfg.LED.Chip, offset)
		if err != nil {
			return nil, 0, fmt.Errorf("init gpio: %w", err)
		}
		return d, offset, nil
	case config.DriverPeriph:
		d, err := pwm.Open(cfg.LED.Pin)
		if err != nil {
			return nil, 0, fmt.Errorf("init pwm: %w", err)
		}
		return d, pinNumber(cfg.LED.Pin), nil
	case config.DriverLog:
		n := pinNumber(cfg.LED.Pin)
		return &gpio.LogDriver{Pin: n, HighRes: pwm.HighResCapable(cfg.LED.Pin)}, n, nil
	}
	return nil, 0, fmt.Errorf("unknown driver %q", cfg.LED.Driver)
}

// pinNumber extracts the trailing number of a pin name ("GPIO18" -> 18).
// Returns -1 if there is none.
func pinNumber(name string) int {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return -1
	}
	return n
}

// initChannel puts ch into the configured mode. A failed high-resolution
// request falls back to standard PWM.
func initChannel(ch *led.Channel, cfg config.LEDConfig) {
	level := uint16(cfg.DefaultBrightness)
	switch led.Mode(cfg.Mode) {
	case led.ModePWMExtended:
		if ch.InitPWMExtended(level) {
			return
		}
		log.Printf("led: pin %s has no high-resolution timer, using standard pwm", cfg.Pin)
		ch.InitPWM(level)
	case led.ModePWM:
		ch.InitPWM(level)
	default:
		ch.Init(cfg.DefaultOn)
	}
}

func run(cfg config.Config) error {
	driver, pin, err := openDriver(cfg)
	if err != nil {
		return err
	}
	defer driver.Close()

	ch := led.NewChannel(pin, driver, led.NewSystemClock(), cfg.Timing())
	initChannel(ch, cfg.LED)

	tracker := status.NewTracker(time.Now(), status.Config{
		Name:            cfg.LED.Name,
		Mode:            cfg.LED.Mode,
		Driver:          cfg.LED.Driver,
		Pin:             cfg.LED.Pin,
		Broker:          cfg.MQTT.Broker,
		HTTPAddr:        cfg.HTTP.Addr,
		HeartbeatS:      cfg.MQTT.HeartbeatSeconds,
		FlashIntervalMs: uint32(cfg.LED.FlashIntervalMs),
		FadeIntervalMs:  uint32(cfg.LED.FadeIntervalMs),
	})
	tracker.Update(ch.State())

	bus := events.New()
	requests := make(chan command.Request, requestQueue)
	stopped := make(chan struct{})

	// Initialize MQTT
	var publisher mqtt.Publisher = nopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewRealClient(cfg.MQTT.Broker, cfg.ClientID(), mqtt.TopicsFor(cfg.LED.Name))
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer client.Close()
		if err := subscribeCommands(client, requests, stopped); err != nil {
			log.Printf("mqtt: subscribe failed, commands only via http: %v", err)
		}
		publisher, mqttStatus = client, client
		tracker.SetMQTTConnected(client.IsConnected())
	}
	detach := wireBus(bus, cfg.LED.Name, publisher)
	defer detach()

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}
	bus.Publish(events.StateChangedEvent{Timestamp: snap.Now, State: ch.State(), Reason: "startup"})

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, requests, stopped)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: name=%s mode=%s driver=%s pin=%s broker=%s",
		cfg.LED.Name, ch.State().Mode, cfg.LED.Driver, cfg.LED.Pin, cfg.MQTT.Broker)

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Printf("sd_notify: %v", err)
	} else if ok {
		log.Printf("notified systemd: ready")
	}
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	var heartbeat <-chan time.Time
	if hb := cfg.Heartbeat(); hb > 0 {
		hbTicker := time.NewTicker(hb)
		defer hbTicker.Stop()
		heartbeat = hbTicker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		name:       cfg.LED.Name,
		ch:         ch,
		requests:   requests,
		stopped:    stopped,
		bus:        bus,
		tracker:    tracker,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		detach:     detach,
		now:        time.Now,
	}, ticker.C, heartbeat, sigCh)
}

// subscribeCommands feeds payloads from the command topic into requests.
func subscribeCommands(sub mqtt.Subscriber, requests chan<- command.Request, stopped <-chan struct{}) error {
	return sub.Subscribe(mqttHandler(requests, stopped))
}

// mqttHandler queues command payloads for the loop without blocking the
// MQTT client. Payloads that do not fit are dropped.
func mqttHandler(requests chan<- command.Request, stopped <-chan struct{}) func([]byte) {
	return func(payload []byte) {
		req := command.Request{Payload: append([]byte(nil), payload...), Source: "mqtt"}
		select {
		case requests <- req:
		case <-stopped:
		default:
			log.Printf("mqtt: command queue full, dropping %q", strings.TrimSpace(string(payload)))
		}
	}
}

// wireBus connects the event bus to the MQTT publisher, metrics and the log.
// It returns a function that removes the subscriptions. Once it returns, no
// state event from the bus reaches the publisher, including ones already queued.
func wireBus(bus *events.Bus, name string, publisher mqtt.Publisher) func() {
	var (
		mu       sync.Mutex
		detached bool
	)
	unsubState := bus.OnStateChanged(func(e events.StateChangedEvent) {
		mu.Lock()
		defer mu.Unlock()
		if detached {
			return
		}
		err := publisher.PublishState(mqtt.StateEvent{
			Timestamp: e.Timestamp,
			Reason:    e.Reason,
			State:     e.State,
		})
		if err != nil {
			log.Printf("publish error: %v", err)
		}
	})
	unsubCommand := bus.OnCommandApplied(func(e events.CommandAppliedEvent) {
		metrics.CommandApplied(name, e.Op, e.Changed, e.Err != "")
		if e.Err != "" {
			log.Printf("command from %s rejected: %s", e.Source, e.Err)
			return
		}
		log.Printf("command from %s: op=%s changed=%v", e.Source, e.Op, e.Changed)
	})
	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			detached = true
			mu.Unlock()
			unsubState()
			unsubCommand()
		})
	}
}

// nopPublisher stands in when MQTT is disabled.
type nopPublisher struct{}

func (nopPublisher) PublishState(mqtt.StateEvent) error   { return nil }
func (nopPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (nopPublisher) Close() error                         { return nil }

// loopDeps are the collaborators of runLoop.
type loopDeps struct {
	name       string
	ch         *led.Channel
	requests   <-chan command.Request
	stopped    chan<- struct{} // closed when runLoop returns
	bus        *events.Bus
	tracker    *status.Tracker
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	detach     func()                // stops bus delivery to the publisher
	now        func() time.Time
}

// runLoop owns the channel: every Update and every command runs here.
// It returns after a signal, with the LED switched off. A nil heartbeat
// channel disables heartbeats.
func runLoop(d loopDeps, tick, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	defer close(d.stopped)

	settled := d.ch.State().Settled()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			// Queued bus events must not land after the final state.
			d.detach()

			d.ch.Off()
			state := d.ch.State()
			d.tracker.Update(state)
			metrics.Record(d.name, state)
			if err := d.publisher.PublishState(mqtt.StateEvent{Timestamp: d.now(), Reason: "shutdown", State: state}); err != nil {
				log.Printf("failed to publish final state: %v", err)
			}

			if d.mqttStatus != nil {
				d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
			}
			snap := d.tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  d.now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-heartbeat:
			if d.mqttStatus != nil {
				d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
			}
			snap := d.tracker.Snapshot()
			log.Printf("heartbeat: uptime=%v brightness=%d/%d busy=%v commands=%d",
				snap.Uptime().Truncate(time.Second), snap.State.Brightness, snap.State.MaxBrightness, d.ch.Busy(), snap.Counts.Commands)
			hbEvent := mqtt.SystemEvent{
				Timestamp:  d.now(),
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := d.publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}

		case req := <-d.requests:
			res := command.Handle(d.ch, req.Payload)
			d.tracker.RecordCommand(res.Changed, res.Err)
			d.tracker.Update(res.State)
			metrics.Record(d.name, res.State)
			if req.Reply != nil {
				req.Reply <- res
			}

			ev := events.CommandAppliedEvent{
				Timestamp: d.now(),
				Op:        string(res.Op),
				Source:    req.Source,
				Changed:   res.Changed,
			}
			if res.Err != nil {
				ev.Err = res.Err.Error()
			}
			d.bus.Publish(ev)
			if res.Changed {
				d.bus.Publish(events.StateChangedEvent{Timestamp: ev.Timestamp, State: res.State, Reason: "command"})
			}
			settled = res.State.Settled()

		case <-tick:
			d.ch.Update()
			state := d.ch.State()
			d.tracker.Update(state)
			metrics.Record(d.name, state)
			metrics.UpdateCalled(d.name)
			if d.mqttStatus != nil {
				d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
			}

			if !settled && state.Settled() {
				d.bus.Publish(events.StateChangedEvent{Timestamp: d.now(), State: state, Reason: "settled"})
			}
			settled = state.Settled()
		}
	}
}
