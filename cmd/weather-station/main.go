// Command weather-station samples a DHT11 and a BMP280 and serves the fused
// pressure/humidity/temperature record over HTTP and MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/weather-station/internal/bmp"
	"github.com/sweeney/weather-station/internal/critical"
	"github.com/sweeney/weather-station/internal/dht"
	"github.com/sweeney/weather-station/internal/fresh"
	"github.com/sweeney/weather-station/internal/fusion"
	"github.com/sweeney/weather-station/internal/gpio"
	"github.com/sweeney/weather-station/internal/metrics"
	"github.com/sweeney/weather-station/internal/mqtt"
	"github.com/sweeney/weather-station/internal/sampling"
	"github.com/sweeney/weather-station/internal/status"
	"github.com/sweeney/weather-station/internal/web"
)

type config struct {
	chip             string
	pinDHT           int
	i2cBus           string
	bmpAddr          uint16
	interval         time.Duration
	humidityInterval time.Duration
	mode             dht.Mode
	pollTimeout      uint32
	broker           string
	httpAddr         string
	heartbeat        time.Duration
	readOnce         bool
}

func main() {
	chip := flag.String("gpio-chip", gpio.DefaultChip, "GPIO character device for the DHT11 data line")
	pinDHT := flag.Int("pin-dht", gpio.DefaultPinData, "line offset (BCM pin) of the DHT11 data line")
	i2cBus := flag.String("i2c-bus", bmp.DefaultBus, "I2C bus name for the BMP280 (empty for the first bus)")
	bmpAddr := flag.Uint("bmp-addr", bmp.DefaultAddress, "I2C address of the BMP280")
	interval := flag.Duration("interval", sampling.DefaultPressureInterval, "pressure sampling and record interval")
	humidityInterval := flag.Duration("humidity-interval", sampling.DefaultHumidityInterval, "DHT11 sampling interval (minimum 1s)")
	checksum := flag.String("checksum", dht.Lenient.String(), "DHT11 checksum policy: strict or lenient")
	pollTimeout := flag.Uint("poll-timeout", uint(dht.DefaultTimeout), "DHT11 poll budget per wait-for-level")
	broker := flag.String("broker", "", "MQTT broker address (empty to disable)")
	httpAddr := flag.String("http", ":80", "HTTP address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "heartbeat interval (0 to disable)")
	readOnce := flag.Bool("read-once", false, "read each sensor once, print and exit")

	flag.Parse()

	mode, err := dht.ParseMode(*checksum)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	cfg := config{
		chip:             *chip,
		pinDHT:           *pinDHT,
		i2cBus:           *i2cBus,
		bmpAddr:          uint16(*bmpAddr),
		interval:         *interval,
		humidityInterval: *humidityInterval,
		mode:             mode,
		pollTimeout:      uint32(*pollTimeout),
		broker:           *broker,
		httpAddr:         *httpAddr,
		heartbeat:        *heartbeat,
		readOnce:         *readOnce,
	}
	if err := cfg.validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func (c config) validate() error {
	if c.humidityInterval < sampling.MinHumidityInterval {
		return fmt.Errorf("-humidity-interval %v is below the DHT11 minimum of %v", c.humidityInterval, sampling.MinHumidityInterval)
	}
	if c.interval <= 0 {
		return fmt.Errorf("-interval must be positive, got %v", c.interval)
	}
	return nil
}

func run(cfg config) error {
	line, err := gpio.NewRealLine(cfg.chip, cfg.pinDHT)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer line.Close()
	device := dht.New(line, dht.WithTimeout(cfg.pollTimeout))
	section := critical.NewThreadSection()

	sensor, err := bmp.NewRealSensor(cfg.i2cBus, cfg.bmpAddr)
	if err != nil {
		return fmt.Errorf("init bmp: %w", err)
	}
	defer sensor.Close()

	if cfg.readOnce {
		return readOnce(os.Stdout, device, section, sensor)
	}

	m := metrics.New()
	tracker := status.NewTracker(time.Now(), status.Config{
		IntervalMs:         cfg.interval.Milliseconds(),
		HumidityIntervalMs: cfg.humidityInterval.Milliseconds(),
		HeartbeatMs:        cfg.heartbeat.Milliseconds(),
		Checksum:           cfg.mode.String(),
		Broker:             cfg.broker,
		HTTPAddr:           cfg.httpAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	humidity := fresh.New[float64]()
	var outs []fusion.Output
	var httpOut, mqttOut *fresh.Channel[fusion.Record]
	if cfg.httpAddr != "" {
		httpOut = fresh.New[fusion.Record]()
		outs = append(outs, fusion.Output{Name: "http", Ch: httpOut})
	}

	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Config{
			Broker:             cfg.broker,
			OnConnectionChange: tracker.SetMQTTConnected,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
		mqttOut = fresh.New[fusion.Record]()
		outs = append(outs, fusion.Output{Name: "mqtt", Ch: mqttOut})
	}

	stage := fusion.NewStage(humidity, m, outs...)
	humidityTask := &sampling.HumidityTask{
		Sensor:   device,
		Section:  section,
		Out:      humidity,
		Interval: cfg.humidityInterval,
		Mode:     cfg.mode,
		Metrics:  m,
		Tracker:  tracker,
	}
	pressureTask := &sampling.PressureTask{
		Sensor:   sensor,
		Stage:    stage,
		Interval: cfg.interval,
		Metrics:  m,
		Tracker:  tracker,
	}

	publishSystem(publisher, mqttStatus, tracker, "STARTUP", "", true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return humidityTask.Run(gctx) })
	g.Go(func() error { return pressureTask.Run(gctx) })
	if publisher != nil {
		g.Go(func() error { return mqtt.Forward(gctx, mqttOut, publisher, time.Now) })
	}

	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker, httpOut, m)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http server listening on %s", cfg.httpAddr)
	}

	log.Printf("started: interval=%v humidity-interval=%v checksum=%s broker=%q heartbeat=%v",
		cfg.interval, cfg.humidityInterval, cfg.mode, cfg.broker, cfg.heartbeat)

	var heartbeatTick <-chan time.Time
	if cfg.heartbeat > 0 {
		ticker := time.NewTicker(cfg.heartbeat)
		defer ticker.Stop()
		heartbeatTick = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	err = runLoop(gctx, publisher, mqttStatus, tracker, heartbeatTick, sigCh)
	cancel()
	if werr := g.Wait(); werr != nil && err == nil {
		err = werr
	}
	return err
}

// runLoop publishes heartbeats until a signal arrives or ctx ends, then
// publishes the shutdown event. publisher may be nil.
func runLoop(ctx context.Context, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			publishSystem(publisher, mqttStatus, tracker, "SHUTDOWN", signalName(s), true)
			return nil

		case <-ctx.Done():
			publishSystem(publisher, mqttStatus, tracker, "SHUTDOWN", "TASK_EXIT", true)
			return ctx.Err()

		case <-heartbeat:
			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			snap := tracker.Snapshot()
			log.Printf("heartbeat: uptime=%v records=%d humidity_ok=%d humidity_failed=%d pressure_failed=%d",
				snap.Uptime().Truncate(time.Second), snap.Counts.Records, snap.Counts.HumidityOK,
				snap.Counts.HumidityFailed, snap.Counts.PressureFailed)
			publishSystem(publisher, mqttStatus, tracker, "HEARTBEAT", "", false)
		}
	}
}

// publishSystem sends a system event carrying the current status snapshot.
func publishSystem(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, event, reason string, retained bool) {
	if publisher == nil {
		return
	}
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	snap := tracker.Snapshot()
	err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// readOnce reads the DHT11 lenient then strict, and the BMP280 once.
// Individual read failures are printed, not returned.
func readOnce(w io.Writer, device sampling.HumiditySensor, section critical.Section, sensor bmp.Sensor) error {
	for _, mode := range []dht.Mode{dht.Lenient, dht.Strict} {
		var m dht.Measurement
		err := critical.With(section, func() error {
			var err error
			m, err = device.ReadMode(mode)
			return err
		})
		if err != nil {
			fmt.Fprintf(w, "dht11 (%s): error: %v\n", mode, err)
		} else {
			fmt.Fprintf(w, "dht11 (%s): humidity=%.1f%% temperature=%.1fC\n", mode, m.Humidity, m.Temperature)
		}
	}

	r, err := sensor.Sense()
	if err != nil {
		fmt.Fprintf(w, "bmp280: error: %v\n", err)
		return nil
	}
	fmt.Fprintf(w, "bmp280: pressure=%.1fkPa temperature=%.1fC\n",
		fusion.Round1(fusion.ToKPa(r.PressurePa)), fusion.Round1(r.TemperatureC))
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
