package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/itohio/sbpedals/pkg/config"
	"github.com/itohio/sbpedals/pkg/controller"
	"github.com/itohio/sbpedals/pkg/keys"
	"github.com/itohio/sbpedals/pkg/link"
	"github.com/itohio/sbpedals/pkg/observe"
)

func main() {
	var (
		portFlag        = flag.String("p", "", "Serial port override (e.g., COM3, /dev/ttyACM0 or mock)")
		configFlag      = flag.String("config", "config.yaml", "Configuration file path (.yaml or .toml)")
		mockFlag        = flag.Bool("mock", false, "Use simulated pedals instead of serial port")
		dryRunFlag      = flag.Bool("dry-run", false, "Log key events instead of injecting them")
		verboseFlag     = flag.Bool("v", false, "Verbose (debug) logging")
		interactiveFlag = flag.Bool("i", false, "Run interactive console")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	// Command line overrides
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *mockFlag {
		cfg.Serial.Port = config.MockPort
	}
	if *dryRunFlag {
		cfg.Injector.Backend = config.BackendLog
	}

	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.WithError(err).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	if *verboseFlag {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	injector, err := newInjector(cfg.Injector.Backend)
	if err != nil {
		log.WithError(err).Fatal("Failed to create key injector")
	}
	bindings, err := cfg.Bindings()
	if err != nil {
		log.WithError(err).Fatal("Invalid pedal configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Observers run in their own goroutines behind replace-latest queues
	g, gctx := errgroup.WithContext(ctx)
	var (
		observers []link.Observer
		queues    []*observe.Latest
	)
	if cfg.Observe.Console {
		q := observe.NewLatest("console")
		console := observe.NewConsole(os.Stdout, observe.DefaultConsoleInterval)
		g.Go(func() error { return q.Run(gctx, console) })
		observers = append(observers, q)
		queues = append(queues, q)
	}
	var mqttSink *observe.MQTT
	if cfg.MQTT.Enabled {
		mqttSink, err = observe.DialMQTT(observe.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			QoS:      cfg.MQTT.QoS,
		})
		if err != nil {
			log.WithError(err).Error("MQTT telemetry disabled")
		} else {
			q := observe.NewLatest("mqtt")
			g.Go(func() error { return q.Run(gctx, mqttSink) })
			observers = append(observers, q)
			queues = append(queues, q)
		}
	}

	ctl, err := controller.New(keys.NewEmitter(injector), bindings,
		controller.WithOpener(openPort(&cfg.Mock)),
		controller.WithObserver(observe.Tee(observers...)),
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to create controller")
	}

	if err := ctl.Start(linkConfig(cfg.Serial)); err != nil {
		if !*interactiveFlag {
			log.WithError(err).Fatal("Failed to start")
		}
		log.WithError(err).Error("Failed to start, use the port command to pick another port")
	}

	if *interactiveFlag {
		sh := newShell(ctl, cfg.Serial, queues)
		go func() {
			<-ctx.Done()
			sh.Close()
		}()
		sh.Run()
		stop()
	} else {
		<-ctx.Done()
	}

	log.Info("Shutting down")
	if err := ctl.Stop(); err != nil {
		log.WithError(err).Error("Link did not shut down cleanly")
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Observer failed")
	}
	if mqttSink != nil {
		mqttSink.Close()
	}
}

// newXdotool is replaced in tests.
var newXdotool = keys.NewXdotool

// newInjector creates the key injector for backend. Without xdotool in PATH
// key events are only logged.
func newInjector(backend string) (keys.Injector, error) {
	switch backend {
	case config.BackendXdotool:
		x, err := newXdotool()
		if err != nil {
			log.WithError(err).Warn("Key injection unavailable, logging key events instead")
			return keys.NewLogInjector(), nil
		}
		return x, nil
	case config.BackendNone:
		return keys.Discard{}, nil
	default:
		return keys.NewLogInjector(), nil
	}
}

// openPort opens the simulated pedal box for the mock port name and a serial
// port otherwise.
func openPort(mock *config.MockConfig) link.Opener {
	return func(cfg link.Config) (link.Port, error) {
		if strings.EqualFold(cfg.Port, config.MockPort) {
			return link.NewMock(mock), nil
		}
		return link.OpenSerial(cfg)
	}
}

func linkConfig(s config.SerialConfig) link.Config {
	return link.Config{
		Port:        s.Port,
		BaudRate:    s.BaudRate,
		ReadTimeout: s.ReadTimeout,
	}
}
