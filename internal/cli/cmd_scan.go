package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/frc-scouting/scoutqr/internal/ingest"
	"github.com/frc-scouting/scoutqr/internal/monitoring"
	"github.com/frc-scouting/scoutqr/internal/scanner"
)

type scanOpts struct {
	port string
	baud int
}

func (o *scanOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.port, "port", "", "scanner serial device (overrides serial_port)")
	cmd.Flags().IntVar(&o.baud, "baud", 0, "scanner baud rate (overrides serial_baud)")
}

func (a *app) openScanner(o scanOpts) (*scanner.Scanner, string, error) {
	port := o.port
	if port == "" {
		port = a.cfg.GetSerialPort()
	}
	baud := o.baud
	if baud == 0 {
		baud = a.cfg.GetSerialBaud()
	}
	sc, err := scanner.Open(port, scanner.PortOptions{BaudRate: baud})
	if err != nil {
		return nil, "", err
	}
	return sc, "serial:" + port, nil
}

// runScanner feeds scanned payloads into the pipeline until ctx is done or
// the scanner stops. When ctx is done the scanner is stopped first and every
// payload already read is still ingested before runScanner returns. The
// scanner is closed on return.
func runScanner(ctx context.Context, pipe *ingest.Pipeline, sc *scanner.Scanner, source string, flushEvery time.Duration) error {
	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	lines, stop := sc.Queue()
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sc.Monitor(monitorCtx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Error("scanner stopped", "source", source, "err", err)
		}
		// Closing ends the queue once it is drained, so Watch flushes and
		// returns.
		sc.Close()
		monitoring.Info("scanner routine terminated", "source", source)
	}()

	// Scanned payloads are not repeatable, so Watch outlives ctx until the
	// queue is drained.
	err := pipe.Watch(context.WithoutCancel(ctx), source, lines, flushEvery)
	stopMonitor()
	wg.Wait()
	return err
}

func newScanCmd(a *app) *cobra.Command {
	var (
		o    scanOpts
		list bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Ingest QR codes from a serial barcode scanner",
		Long: `Read QR payloads from a serial-attached scanner, one per line, and ingest
them every flush_interval. Pending payloads are ingested on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				ports, err := scanner.Ports()
				if err != nil {
					return fmt.Errorf("failed to list serial ports: %w", err)
				}
				for _, p := range ports {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			}

			ctx, stop := interruptible(cmd)
			defer stop()

			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			sc, source, err := a.openScanner(o)
			if err != nil {
				return err
			}
			monitoring.Info("scanning", "source", source, "flush", a.cfg.GetFlushInterval())
			return runScanner(ctx, s.pipe, sc, source, a.cfg.GetFlushInterval())
		},
	}

	o.register(cmd)
	cmd.Flags().BoolVar(&list, "list", false, "list serial ports and exit")
	return cmd
}
