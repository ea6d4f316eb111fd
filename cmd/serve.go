package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/gaslog/internal/config"
	"github.com/fakeyudi/gaslog/internal/logging"
	"github.com/fakeyudi/gaslog/internal/metrics"
	"github.com/fakeyudi/gaslog/internal/publish"
	"github.com/fakeyudi/gaslog/internal/recording"
	"github.com/fakeyudi/gaslog/internal/sensor"
	"github.com/fakeyudi/gaslog/internal/server"
	"github.com/fakeyudi/gaslog/internal/state"
	"github.com/fakeyudi/gaslog/internal/web"
)

// HistoryFile is the name of the history index inside the data directory.
const HistoryFile = "sessions.json"

// openLink opens the sensor's serial line. Tests replace it.
var openLink = func(name string, baud int) (sensor.Link, error) {
	return sensor.OpenSerial(name, baud)
}

var serveFlags struct {
	listen   string
	port     string
	baud     int
	dataDir  string
	metric   string
	index    string
	broker   string
	logLevel string
	poll     config.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the appliance: poll the sensor and serve the HTTP interface",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := GetConfig()
		applyServeFlags(cmd, &c)
		if err := c.Validate(); err != nil {
			return err
		}

		level, err := logging.ParseLevel(c.LogLevel)
		if err != nil {
			return err
		}
		logger := logging.New(cmd.ErrOrStderr(), level, c.LogFormat)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		link, err := openLink(c.SerialPort, c.BaudRate)
		if err != nil {
			return fmt.Errorf("opening serial port: %w", err)
		}
		a, err := newAppliance(c, link, logger)
		if err != nil {
			link.Close()
			return err
		}
		return a.run(ctx)
	},
}

func applyServeFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("listen") {
		c.ListenAddr = serveFlags.listen
	}
	if f.Changed("port") {
		c.SerialPort = serveFlags.port
	}
	if f.Changed("baud") {
		c.BaudRate = serveFlags.baud
	}
	if f.Changed("data-dir") {
		c.DataDir = serveFlags.dataDir
	}
	if f.Changed("metric") {
		c.MetricName = serveFlags.metric
	}
	if f.Changed("index") {
		c.IndexPath = serveFlags.index
	}
	if f.Changed("mqtt-broker") {
		c.MQTT.Broker = serveFlags.broker
	}
	if f.Changed("log-level") {
		c.LogLevel = serveFlags.logLevel
	}
	if f.Changed("poll-interval") {
		c.PollInterval = serveFlags.poll
	}
}

// appliance is the running system: shared store, recorder, poller and HTTP
// server, all built from one config and passed to each other explicitly.
type appliance struct {
	cfg       config.Config
	logger    *slog.Logger
	link      sensor.Link
	store     *state.Store
	ctrl      *recording.Controller
	poller    *sensor.Poller
	files     *server.FileSource
	srv       *server.Server
	publisher *publish.MQTT
}

// newAppliance wires every component and binds the listen address. The
// caller keeps ownership of link until run is called.
func newAppliance(c config.Config, link sensor.Link, logger *slog.Logger) (*appliance, error) {
	m := metrics.New()
	store := state.NewStore()

	history := recording.NewHistoryFile(filepath.Join(c.DataDir, HistoryFile))
	ctrl, err := recording.NewController(store, recording.Options{
		Dir:      c.DataDir,
		Metric:   c.MetricName,
		History:  history,
		Logger:   logger,
		Observer: m,
	})
	if err != nil {
		return nil, err
	}
	ids, err := history.Load()
	if err != nil {
		// A damaged index only loses the listing; the files are still there.
		logger.Warn("Ignoring unreadable session history", "error", err)
	}
	store.RestoreHistory(ids)

	a := &appliance{cfg: c, logger: logger, link: link, store: store, ctrl: ctrl}

	var pub sensor.Publisher
	if c.MQTT.Broker != "" {
		p, err := publish.Dial(publish.Options{
			Broker:   c.MQTT.Broker,
			Topic:    c.MQTT.Topic,
			ClientID: c.MQTT.ClientID,
			Observer: m,
		})
		if err != nil {
			// The appliance is useful without the broker.
			logger.Warn("MQTT publishing disabled", "broker", c.MQTT.Broker, "error", err)
		} else {
			a.publisher = p
			pub = p
			logger.Info("Publishing samples", "broker", c.MQTT.Broker, "topic", p.Topic())
		}
	}

	a.poller = sensor.NewPoller(link, store, ctrl, sensor.Options{
		Interval:    c.PollInterval.Std(),
		Settle:      c.SettleDelay.Std(),
		ReadTimeout: c.ReadTimeout.Std(),
		Clock:       clockwork.NewRealClock(),
		Logger:      logger,
		Observer:    m,
		Publisher:   pub,
	})

	files, err := server.OpenFileSource(c.DataDir)
	if err != nil {
		a.closePublisher()
		return nil, err
	}
	a.files = files

	h := server.NewHandler(server.Deps{
		Store:      store,
		Controller: ctrl,
		Page:       web.NewPage(c.IndexPath),
		Files:      files,
		Metrics:    m,
		Logger:     logger,
	})
	a.srv = server.New(server.Config{
		Addr:            c.ListenAddr,
		MaxConnections:  c.MaxConnections,
		ShutdownTimeout: c.ShutdownTimeout.Std(),
	}, h, logger)
	if err := a.srv.Listen(); err != nil {
		files.Close()
		a.closePublisher()
		return nil, err
	}
	return a, nil
}

// run serves until ctx is cancelled, then stops any open session and
// releases the serial port.
func (a *appliance) run(ctx context.Context) error {
	a.logger.Info("Starting gaslog",
		"serial_port", a.cfg.SerialPort,
		"baud_rate", a.cfg.BaudRate,
		"data_dir", a.cfg.DataDir,
		"metric", a.cfg.MetricName,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.poller.Run(gctx) })
	g.Go(func() error { return a.srv.Serve(gctx) })
	err := g.Wait()

	// Close also refuses starts from handlers left running by a timed-out
	// Shutdown.
	if stopErr := a.ctrl.Close(); stopErr != nil {
		err = errors.Join(err, fmt.Errorf("stopping session: %w", stopErr))
	}
	a.closePublisher()
	if cerr := a.files.Close(); cerr != nil {
		a.logger.Warn("Closing data directory", "error", cerr)
	}
	if cerr := a.link.Close(); cerr != nil {
		a.logger.Warn("Closing serial port", "error", cerr)
	}
	a.logger.Info("Shutdown complete")
	return err
}

func (a *appliance) closePublisher() {
	if a.publisher != nil {
		a.publisher.Close()
	}
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.listen, "listen", "", "HTTP listen address (overrides config)")
	f.StringVarP(&serveFlags.port, "port", "p", "", "serial port of the sensor (overrides config)")
	f.IntVar(&serveFlags.baud, "baud", 0, "serial baud rate (overrides config)")
	f.StringVar(&serveFlags.dataDir, "data-dir", "", "directory for session files (overrides config)")
	f.StringVar(&serveFlags.metric, "metric", "", "header of the value column (overrides config)")
	f.StringVar(&serveFlags.index, "index", "", "HTML file served at / instead of the built-in page")
	f.StringVar(&serveFlags.broker, "mqtt-broker", "", "MQTT broker for publishing samples, e.g. tcp://localhost:1883")
	f.StringVar(&serveFlags.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	f.Var(&serveFlags.poll, "poll-interval", "time between sensor polls, e.g. 1s (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
