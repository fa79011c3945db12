package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"k8s.io/utils/ptr"

	"imsenvista/internal/api"
	"imsenvista/internal/config"
	"imsenvista/internal/format"
	"imsenvista/internal/logging"
	"imsenvista/internal/models"
)

const appName = "envista"

var version = "dev"

const usage = `Usage: envista [flags] <command> [id]

Commands:
  stations            list every station
  station <id>        show one station and its monitors
  regions             list every region
  region <id>         show one region
  variables           list the measured variables
  latest <id>         latest readings
  earliest <id>       earliest readings
  daily <id>          today's readings, or -date YYYY-MM-DD
  range <id>          readings between -from and -to (YYYY-MM-DD)
  monthly <id>        readings of -month MM -year YYYY, current month by default

Flags:
`

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	asJSON  bool
	channel *int
	date    string
	from    string
	to      string
	month   string
	year    string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options

	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "optional YAML config file")
	noColor := fs.Bool("no-color", false, "disable colored output")
	fs.BoolVar(&opts.asJSON, "json", false, "print JSON instead of text")
	fs.Func("channel", "restrict readings to one channel id", func(v string) error {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid channel %q", v)
		}
		opts.channel = ptr.To(id)
		return nil
	})
	fs.StringVar(&opts.date, "date", "", "day for the daily command (YYYY-MM-DD)")
	fs.StringVar(&opts.from, "from", "", "first day for the range command (YYYY-MM-DD)")
	fs.StringVar(&opts.to, "to", "", "last day for the range command (YYYY-MM-DD)")
	fs.StringVar(&opts.month, "month", "", "month for the monthly command (MM)")
	fs.StringVar(&opts.year, "year", "", "year for the monthly command (YYYY)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *noColor {
		color.NoColor = true
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewWithWriter(stderr, cfg.Log, appName, version)
	if err != nil {
		return err
	}
	client, err := api.NewClientFromConfig(cfg.Envista, logger)
	if err != nil {
		return err
	}

	return execute(ctx, client, fs.Args(), opts, stdout)
}

func execute(ctx context.Context, client *api.Client, args []string, opts options, stdout io.Writer) error {
	command := args[0]

	switch command {
	case "stations":
		stations, err := client.GetAllStationsInfo(ctx)
		if err != nil {
			return err
		}
		if opts.asJSON {
			return writeJSON(stdout, stations)
		}
		for _, s := range stations {
			fmt.Fprintln(stdout, format.Station(s))
		}
		return nil

	case "regions":
		regions, err := client.GetAllRegionsInfo(ctx)
		if err != nil {
			return err
		}
		if opts.asJSON {
			return writeJSON(stdout, regions)
		}
		for _, r := range regions {
			fmt.Fprintf(stdout, "%d  %s  %v\n", r.ID, r.Name, r.StationIDs())
		}
		return nil

	case "variables":
		vars := client.GetMetricDescriptions()
		if opts.asJSON {
			return writeJSON(stdout, vars)
		}
		fmt.Fprint(stdout, format.Variables(vars))
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("%s requires an id", command)
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid id %q", args[1])
	}

	switch command {
	case "station":
		station, err := client.GetStationInfo(ctx, id)
		if err != nil {
			return err
		}
		if opts.asJSON {
			return writeJSON(stdout, station)
		}
		fmt.Fprint(stdout, format.Station(*station))
		return nil

	case "region":
		region, err := client.GetRegionInfo(ctx, id)
		if err != nil {
			return err
		}
		if opts.asJSON {
			return writeJSON(stdout, region)
		}
		fmt.Fprintf(stdout, "%d  %s\n", region.ID, region.Name)
		for _, s := range region.Stations {
			fmt.Fprintln(stdout, format.Station(s))
		}
		return nil
	}

	readings, err := fetchReadings(ctx, client, command, id, opts)
	if err != nil {
		return err
	}
	if opts.asJSON {
		return writeJSON(stdout, readings)
	}
	fmt.Fprint(stdout, format.Readings(*readings, time.Now()))
	return nil
}

func fetchReadings(ctx context.Context, client *api.Client, command string, id int, opts options) (*models.StationMeteorologicalReadings, error) {
	channel := api.ChannelOptions{ChannelID: opts.channel}

	switch command {
	case "latest":
		return client.GetLatestStationData(ctx, id, channel)
	case "earliest":
		return client.GetEarliestStationData(ctx, id, channel)
	case "daily":
		if opts.date == "" {
			return client.GetDailyStationData(ctx, id, channel)
		}
		date, err := parseDate("date", opts.date)
		if err != nil {
			return nil, err
		}
		return client.GetStationDataFromDate(ctx, id, date, channel)
	case "range":
		from, err := parseDate("from", opts.from)
		if err != nil {
			return nil, err
		}
		to, err := parseDate("to", opts.to)
		if err != nil {
			return nil, err
		}
		return client.GetStationDataByDateRange(ctx, id, from, to, channel)
	case "monthly":
		monthly := api.MonthlyOptions{ChannelID: channel.ChannelID}
		if opts.month != "" {
			monthly.Month = ptr.To(opts.month)
		}
		if opts.year != "" {
			monthly.Year = ptr.To(opts.year)
		}
		return client.GetMonthlyStationData(ctx, id, monthly)
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func parseDate(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("-%s is required", name)
	}
	t, err := time.ParseInLocation(time.DateOnly, s, models.ServiceLocation)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -%s %q: expected YYYY-MM-DD", name, s)
	}
	return t, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
