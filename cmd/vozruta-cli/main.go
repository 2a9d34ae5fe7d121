package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"vozruta/internal/amqp"
	"vozruta/internal/capture"
	"vozruta/internal/cli"
	"vozruta/internal/core"
	"vozruta/internal/export"
	"vozruta/internal/ledger"
	"vozruta/internal/log"
	"vozruta/internal/parser"
	"vozruta/internal/services"
)

const help = `Escribí una frase por línea, por ejemplo "Maria viaje a Saenz 30000 a las 15:30".
Comandos:
  :ida | :vuelta | :encomienda   cambia la sección activa
  :hoy | :sig | :ant             navega los días
  :fecha AAAA-MM-DD              elige un día
  :borrar ID                     elimina un viaje
  :resumen | :tabla | :csv       exporta el día activo
  :historial                     viajes por mes
  :ayuda | :salir`

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.BootstrapLogger(log.ComponentApp), nil)
	// Records go to stderr so they never interleave with the ledger output.
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
		Format:    cfg.LogFormat,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	be := cli.InitBackend(logger, cfg)
	defer be.Cleanup()

	store := ledger.New(be.Open, ledger.WithLogger(logger.WithComponent(log.ComponentLedger).Slog()))
	opts := []services.Option{services.WithLogger(logger.WithComponent(log.ComponentEntry).Slog())}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP).Slog())
		if err != nil {
			logger.Warn("AMQP unavailable, trips will not be mirrored", log.FieldError, err)
		} else {
			defer client.Close()
			opts = append(opts, services.WithPublisher(client))
		}
	}
	entries := services.NewEntryService(store,
		parser.New(parser.WithLogger(logger.WithComponent(log.ComponentParser).Slog())),
		opts...)

	rec := capture.NewLineRecognizer(os.Stdin)
	sh := &shell{
		out:     os.Stdout,
		store:   store,
		entries: entries,
		session: capture.NewSession(rec, cfg.Locale, logger.WithComponent(log.ComponentCapture).Slog()),
		section: core.SectionOutbound,
	}
	if err := sh.run(ctx, rec.Closed); err != nil {
		logger.Error("vozruta-cli failed", log.FieldError, err)
		os.Exit(1)
	}
}

type shell struct {
	out     io.Writer
	store   *ledger.Store
	entries *services.EntryService
	session *capture.Session
	section core.Section
}

var errQuit = errors.New("quit")

// run reads sentences until the input ends, ctx is cancelled or :salir.
func (s *shell) run(ctx context.Context, exhausted func() bool) error {
	fmt.Fprintln(s.out, help)
	if err := s.store.Reload(ctx); err != nil {
		return err
	}
	s.printDay()

	for ctx.Err() == nil {
		fmt.Fprintf(s.out, "[%s %s]> ", s.store.CurrentDate(), s.section)
		line := strings.TrimSpace(s.session.Listen(ctx))
		if line == "" {
			if exhausted() {
				fmt.Fprintln(s.out)
				return nil
			}
			continue
		}
		err := s.handle(ctx, line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, core.ErrPersistenceUnavailable):
			return err
		case err != nil:
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
	return nil
}

func (s *shell) handle(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, ":") {
		trip, err := s.entries.RecordSentence(ctx, line, s.section)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "#%d %s %s %s\n", *trip.ID, trip.Date, trip.Description, export.Money(trip.Amount, 0))
		s.printDay()
		return nil
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	cmd, arg = strings.ToLower(cmd), strings.TrimSpace(arg)
	switch cmd {
	case "salir", "q":
		return errQuit
	case "ayuda", "h":
		fmt.Fprintln(s.out, help)
		return nil
	case "ida", "vuelta", "encomienda":
		section, err := core.ParseSection(cmd)
		if err != nil {
			return err
		}
		s.section = section
		return nil
	case "hoy":
		return s.move(s.store.SelectDate(ctx, core.Today(time.Now())))
	case "sig":
		return s.move(s.store.NextDay(ctx))
	case "ant":
		return s.move(s.store.PrevDay(ctx))
	case "fecha":
		return s.move(s.store.SelectDate(ctx, arg))
	case "borrar":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: trip id %q", core.ErrInvalidRecord, arg)
		}
		return s.move(s.entries.DeleteTrip(ctx, id))
	case "resumen", "tabla", "csv":
		return s.export(ctx, cmd)
	case "historial":
		return s.history(ctx)
	}
	return fmt.Errorf("comando desconocido %q", cmd)
}

func (s *shell) move(err error) error {
	if err != nil {
		return err
	}
	s.printDay()
	return nil
}

func (s *shell) printDay() {
	day := s.store.Snapshot()
	agg := core.Aggregate(day.Trips)
	long, err := export.LongDate(day.Date, true)
	if err != nil {
		long = day.Date
	}
	fmt.Fprintf(s.out, "%s  total %s\n", long, export.Money(agg.Total, 0))
	for _, sec := range core.Sections() {
		fmt.Fprintf(s.out, "  %-10s %3d  %s\n", sec, agg.Counts[sec], export.Money(agg.Totals[sec], 0))
	}
	for _, t := range day.Trips {
		fmt.Fprintf(s.out, "  #%-4d %-5s %-10s %s  %s\n",
			*t.ID, core.Deref(t.Time), t.Section, t.Description, export.Money(t.Amount, 0))
	}
}

func (s *shell) export(ctx context.Context, name string) error {
	format := export.FormatCSV
	switch name {
	case "resumen":
		format = export.FormatSummary
	case "tabla":
		format = export.FormatTable
	}
	date := s.store.CurrentDate()
	trips, err := s.store.TripsForDate(ctx, date)
	if err != nil {
		return err
	}
	payload, err := export.Render(format, date, trips, export.Total(trips))
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, payload.Body)
	return nil
}

func (s *shell) history(ctx context.Context) error {
	rows, err := s.store.MonthlySummary(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(s.out, "Sin registros")
		return nil
	}
	for _, r := range rows {
		fmt.Fprintf(s.out, "%s  %3d viajes  (ida %d, vuelta %d, encomienda %d)\n",
			r.Month, r.Total, r.Outbound, r.Return, r.Parcel)
	}
	return nil
}
