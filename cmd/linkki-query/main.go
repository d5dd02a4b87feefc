package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"linkki-tracker/internal/config"
	"linkki-tracker/internal/db"
	"linkki-tracker/internal/publisher"
	"linkki-tracker/internal/query"
	"linkki-tracker/internal/transit"
)

const usage = `usage: linkki-query [flags] <command>

commands:
  arrivals   upcoming arrivals of -line at -stop
  stops      stops within -radius meters of -lon/-lat
  stop       one stop by -stop name, distance from -lon/-lat
  lines      every line in the catalog
  vehicles   live vehicles of -line
  trip       stop names of -trip on -line

flags:
`

func main() {
	stopName := flag.String("stop", "", "Bus stop name")
	lineName := flag.String("line", "", "Line name")
	tripID := flag.String("trip", "", "Trip id")
	lon := flag.Float64("lon", 0, "Longitude")
	lat := flag.Float64("lat", 0, "Latitude")
	radius := flag.Float64("radius", query.DefaultRadiusMeters, "Search radius in meters")
	user := flag.String("user", "", "Push the result to this user's client over NATS (stop, lines)")
	timeout := flag.Duration("timeout", 10*time.Second, "Query timeout")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer sqlDB.Close()
	if err := db.Ping(ctx, sqlDB); err != nil {
		log.Fatalf("db ping error: %v", err)
	}
	store := db.NewStore(sqlDB, cfg.LocationTTL)
	svc := query.NewService(store, store, store, cfg.Location)

	var hub *publisher.Hub
	if *user != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, nil)
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
		hub = publisher.NewHub(pub)
	}

	var out any
	switch cmd := strings.ToLower(flag.Arg(0)); cmd {
	case "arrivals":
		out, err = svc.Arrivals(ctx, *stopName, *lineName)
	case "stops":
		out, err = svc.NearestStops(ctx, *lon, *lat, *radius)
	case "stop":
		var stop *transit.StopDistance
		stop, err = svc.StopByName(ctx, *stopName, *lon, *lat)
		if err == nil && stop != nil && hub != nil {
			hub.ShowBusStop(*user, stop.Name, stop.Coordinates.Lon(), stop.Coordinates.Lat())
		}
		out = stop
	case "lines":
		var lines []string
		lines, err = svc.AvailableLines(ctx)
		if err == nil && hub != nil {
			hub.FilterBusLines(*user, lines)
		}
		out = lines
	case "vehicles":
		out, err = svc.VehiclesOnLine(ctx, *lineName)
	case "trip":
		out, err = svc.StopsForTrip(ctx, *lineName, *tripID)
	default:
		log.Printf("unknown command %q", cmd)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s error: %v", flag.Arg(0), err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode error: %v", err)
	}
}
