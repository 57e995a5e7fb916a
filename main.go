package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/nixxel-company-limited/ql-print-server/adapter"
	"github.com/nixxel-company-limited/ql-print-server/config"
	"github.com/nixxel-company-limited/ql-print-server/driver"
	"github.com/nixxel-company-limited/ql-print-server/imaging"
	"github.com/nixxel-company-limited/ql-print-server/journal"
	"github.com/nixxel-company-limited/ql-print-server/protocol"
	"github.com/nixxel-company-limited/ql-print-server/server"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("QL_CONFIG"), "path to the config file")
	listPorts := pflag.Bool("list-ports", false, "list serial ports and exit")
	recentJobs := pflag.Int("recent-jobs", 0, "print the last N journaled jobs and exit")
	jobID := pflag.String("job", "", "print one journaled job and exit")
	pflag.Parse()

	if *listPorts {
		ports, err := adapter.ListSerialPorts()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, port := range ports {
			fmt.Println(port)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *recentJobs > 0 || *jobID != "" {
		if err := showJobs(os.Stdout, cfg.Journal.Path, *recentJobs, *jobID); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	logger, err := cfg.Log.Logger(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	dev, err := openDevice(cfg.Device, logger)
	if err != nil {
		return err
	}

	link, err := driver.NewLink(dev, driver.WithReadBackoff(cfg.Device.ReadBackoff))
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}

	printer, err := driver.NewPrinter(link, printerOptions(cfg.Print, logger)...)
	if err != nil {
		link.Close()
		return fmt.Errorf("failed to initialize printer: %w", err)
	}
	defer printer.Close()

	if status, err := printer.Status(); err != nil {
		logger.Warn().Err(err).Msg("Printer did not report its status")
	} else {
		logger.Info().
			Stringer("media", status.MediaType).
			Uint8("media_width", status.MediaWidth).
			Uint8("media_length", status.MediaLength).
			Bool("errors", status.HasErrors()).
			Msg("Printer ready")
	}

	renderer, err := imaging.NewRenderer(imaging.Options{
		Width:        cfg.Print.BytesPerLine * 8,
		Gamma:        cfg.Print.Gamma,
		Dither:       cfg.Print.Dither,
		FlipVertical: cfg.Print.FlipVertical,
		Font:         cfg.Print.Font,
		FontSize:     cfg.Print.FontSize,
		MaxPixels:    cfg.Print.MaxPixels,
	})
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithMaxJobSize(cfg.Server.MaxJobSize),
		server.WithReadTimeout(cfg.Server.ReadTimeout),
	}
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer j.Close()
		opts = append(opts, server.WithRecorder(j))
		logger.Info().Str("path", cfg.Journal.Path).Msg("Journaling jobs")
	}

	svr := server.NewWithLogger(printer, renderer, cfg.Server.Address, logger, opts...)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Info().Stringer("signal", sig).Msg("Shutting down")
		svr.Stop()
	}()

	return svr.Start()
}

func openDevice(cfg config.DeviceConfig, logger zerolog.Logger) (adapter.Adapter, error) {
	kind, err := adapter.ParseKind(cfg.Adapter)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("adapter", string(kind)).Msg("Opening printer")

	switch kind {
	case adapter.KindUSB:
		dev := adapter.NewUSBAdapter(adapter.USBConfig{
			VendorID:    cfg.USB.VendorID,
			ProductID:   cfg.USB.ProductID,
			Serial:      cfg.USB.Serial,
			ReadTimeout: cfg.USB.ReadTimeout,
		})
		for _, t := range []adapter.EventType{adapter.EventConnect, adapter.EventClose, adapter.EventError} {
			dev.On(t, func(e adapter.Event) {
				ev := logger.Info()
				if e.Error != nil {
					ev = logger.Error().Err(e.Error)
				}
				ev.Stringer("event", e.Type).Str("device", e.Device).Msg("USB event")
			})
		}
		return dev, nil
	case adapter.KindSerial:
		dev := adapter.NewSerialAdapter(adapter.SerialConfig{
			Port:        cfg.Serial.Port,
			BaudRate:    cfg.Serial.BaudRate,
			ReadTimeout: cfg.Serial.ReadTimeout,
		})
		if ok, err := dev.Available(); err != nil {
			logger.Debug().Err(err).Msg("Cannot list serial ports")
		} else if !ok {
			logger.Warn().Str("port", cfg.Serial.Port).Msg("Serial port not found, trying anyway")
		}
		return dev, nil
	default:
		return adapter.NewCharDevice(cfg.Path), nil
	}
}

// showJobs prints journaled jobs: the one with id, or the n most recent.
func showJobs(w io.Writer, path string, n int, id string) error {
	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	var jobs []journal.Job
	if id != "" {
		uid, err := uuid.Parse(id)
		if err != nil {
			return fmt.Errorf("invalid job id: %w", err)
		}
		job, err := j.Get(uid)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	} else if jobs, err = j.Recent(n); err != nil {
		return err
	}

	for _, job := range jobs {
		fmt.Fprintf(w, "%s  %s  %-7s  %5d lines  %-10s  %s  %s\n",
			job.ID, job.CreatedAt.Format(time.DateTime), job.Status, job.Lines, job.Media, job.Client, job.Error)
	}
	return nil
}

func printerOptions(cfg config.PrintConfig, logger zerolog.Logger) []driver.Option {
	opts := []driver.Option{
		driver.WithBytesPerLine(cfg.BytesPerLine),
		driver.WithMargin(cfg.Margin),
		driver.WithFeed(cfg.Feed),
		driver.WithLogger(logger.With().Str("component", "printer").Logger()),
	}
	if cfg.AutoCut {
		opts = append(opts, driver.WithMode(protocol.Mode{AutoCut: true}))
	}
	if cfg.CutAtEnd || cfg.HighResolution {
		opts = append(opts, driver.WithExpandedMode(protocol.ExpandedMode{
			CutAtEnd:       cfg.CutAtEnd,
			HighResolution: cfg.HighResolution,
		}))
	}
	return opts
}
