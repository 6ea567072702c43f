package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/runtracker/internal/config"
	"example.com/runtracker/internal/domain"
	"example.com/runtracker/internal/elevation"
	"example.com/runtracker/internal/enrichment"
	"example.com/runtracker/internal/fit"
	"example.com/runtracker/internal/importer"
	"example.com/runtracker/internal/observability"
	persistence "example.com/runtracker/internal/persistence/postgres"
	"example.com/runtracker/internal/route"
)

const usageText = `usage: runtracker <command> [flags] [args]

commands:
  import     import FIT files or directories of FIT files
  elevation  backfill elevation data for imported files
  list       list imported files with per-file statistics
  route      render the GPS trace of an imported file to an image
`

func usage() {
	fmt.Fprint(os.Stderr, usageText)
}

type app struct {
	cfg  config.Config
	pool *pgxpool.Pool
	repo *persistence.Repository
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := persistence.CreateSchema(ctx, pool); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		go func() {
			log.Printf("metrics listening on %s", cfg.MetricsAddress)
			if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
				log.Printf("metrics server error: %v", err)
			}
		}()
	}

	a := &app{cfg: cfg, pool: pool, repo: persistence.NewRepository(pool)}

	switch cmd := os.Args[1]; cmd {
	case "import":
		err = a.importCmd(ctx, os.Args[2:])
	case "elevation":
		err = a.elevationCmd(ctx, os.Args[2:])
	case "list":
		err = a.listCmd(ctx, os.Args[2:])
	case "route":
		err = a.routeCmd(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func (a *app) importCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("import", flag.ExitOnError)
	recursive := flags.Bool("recursive", false, "descend into subdirectories of directory arguments")
	noCopy := flags.Bool("no-copy", false, "do not archive imported files into the devices directory")
	noElevation := flags.Bool("no-elevation", false, "skip the elevation backfill after import")
	fixMissing := flags.Bool("fix-missing-elevation", false, "also backfill rows with missing elevation across all files")
	skipConfigPaths := flags.Bool("skip-config-paths", false, "ignore IMPORT_PATHS from the environment")
	if err := flags.Parse(args); err != nil {
		return err
	}

	paths := flags.Args()
	if !*skipConfigPaths {
		paths = append(paths, a.cfg.ImportPaths...)
	}

	files, err := expandPaths(paths, *recursive)
	if err != nil {
		return err
	}
	if len(files) == 0 && !*fixMissing {
		return errors.New("no files to import, pass paths or set IMPORT_PATHS")
	}

	var source elevation.Source
	if !*noElevation {
		source, err = elevation.NewSource(a.cfg.Elevation)
		if err != nil {
			if *fixMissing {
				return err
			}
			log.Printf("elevation service unavailable, importing without elevation: %v", err)
		}
	}

	engine := importer.NewEngine(fit.NewLibraryDecoder())

	// a single explicitly named duplicate is a hard error; in a batch it is
	// only worth a warning
	hardFailOnDuplicate := len(files) == 1

	var imported []*domain.FileInfo
	for _, path := range files {
		info, err := a.importOne(ctx, engine, path, *noCopy)
		if err != nil {
			var dup *domain.DuplicateFileError
			if errors.As(err, &dup) && !hardFailOnDuplicate {
				log.Printf("skipping %s: %v", path, err)
				continue
			}
			return fmt.Errorf("import %s: %w", path, err)
		}
		log.Printf("imported %s as %s", path, info.Fingerprint)
		imported = append(imported, info)
	}

	if source == nil {
		return nil
	}
	enricher := enrichment.NewEngine(source)
	for _, info := range imported {
		if err := a.enrichFile(ctx, enricher, &info.ID, true); err != nil {
			log.Printf("could not set elevation for %s: %v", info.Fingerprint, err)
		}
	}
	if *fixMissing {
		return a.enrichFile(ctx, enricher, nil, false)
	}
	return nil
}

// importOne runs a single file import in its own transaction and archives the
// raw bytes into the devices directory only after the commit succeeded.
func (a *app) importOne(ctx context.Context, engine *importer.Engine, path string, noCopy bool) (*domain.FileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	info, err := engine.Import(ctx, tx, data)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if !noCopy {
		if err := a.archiveFile(path, data, info); err != nil {
			log.Printf("could not archive %s: %v", path, err)
		}
	}
	return info, nil
}

// archiveFile copies the imported file into a per-device directory so the
// original can be removed from the watch folder.
func (a *app) archiveFile(path string, data []byte, info *domain.FileInfo) error {
	device := fmt.Sprintf("%s-%s-%d", info.Manufacturer, info.Product, info.SerialNumber)
	dir := filepath.Join(a.cfg.DevicesDir, device)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, filepath.Base(path)), data, 0o644)
}

func (a *app) enrichFile(ctx context.Context, enricher *enrichment.Engine, fileID *int64, overwrite bool) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	counts, err := enricher.Enrich(ctx, tx, fileID, overwrite)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Printf("elevation set for %d/%d records and %d/%d laps",
		counts.RecordsSet, counts.RecordsTotal, counts.LapsSet, counts.LapsTotal)
	return nil
}

func (a *app) elevationCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("elevation", flag.ExitOnError)
	overwrite := flags.Bool("overwrite", false, "re-request elevation even for rows that already have it")
	fixMissing := flags.Bool("fix-missing", false, "backfill rows with missing elevation across all files")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 && !*fixMissing {
		return errors.New("pass one or more fingerprints, or -fix-missing")
	}

	source, err := elevation.NewSource(a.cfg.Elevation)
	if err != nil {
		return err
	}
	enricher := enrichment.NewEngine(source)

	for _, arg := range flags.Args() {
		info, err := a.resolveFile(ctx, arg)
		if err != nil {
			return err
		}
		if err := a.enrichFile(ctx, enricher, &info.ID, *overwrite); err != nil {
			return fmt.Errorf("elevation for %s: %w", info.Fingerprint, err)
		}
	}

	if *fixMissing {
		return a.enrichFile(ctx, enricher, nil, false)
	}
	return nil
}

// resolveFile turns a command line file reference into a file entry. The
// special reference ":last" names the most recently imported file.
func (a *app) resolveFile(ctx context.Context, ref string) (*domain.FileInfo, error) {
	if ref == ":last" {
		return a.repo.LastImportedFile(ctx)
	}
	return a.repo.FindFileByFingerprint(ctx, ref)
}

func (a *app) listCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("list", flag.ExitOnError)
	since := flags.String("since", "", "only files created on or after this date (YYYY-MM-DD)")
	until := flags.String("until", "", "only files created before this date (YYYY-MM-DD)")
	reverse := flags.Bool("reverse", false, "oldest first instead of newest first")
	number := flags.Int("number", 0, "limit the listing to N files")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var opts persistence.ListOptions
	if *since != "" {
		t, err := time.Parse("2006-01-02", *since)
		if err != nil {
			return fmt.Errorf("invalid -since date: %w", err)
		}
		opts.Since = &t
	}
	if *until != "" {
		t, err := time.Parse("2006-01-02", *until)
		if err != nil {
			return fmt.Errorf("invalid -until date: %w", err)
		}
		opts.Until = &t
	}
	opts.Reverse = *reverse
	opts.Limit = *number

	files, err := a.repo.ListFiles(ctx, opts)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tDEVICE\tDISTANCE\tDURATION\tAVG HR\tFINGERPRINT")
	for _, file := range files {
		stats, err := a.repo.RecordStats(ctx, file.ID)
		if err != nil {
			return err
		}
		duration := stats.EndTime.Sub(stats.StartTime).Round(time.Second)
		fmt.Fprintf(w, "%s\t%s-%s\t%.2fkm\t%s\t%.0f\t%s\n",
			file.CreatedAt.Format("2006-01-02 15:04"),
			file.Manufacturer, file.Product,
			stats.TotalDistance/1000,
			duration,
			stats.AvgHeartRate,
			file.Fingerprint)
	}
	return w.Flush()
}

func (a *app) routeCmd(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("route", flag.ExitOnError)
	output := flags.String("o", "route.png", "output image path")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("pass exactly one fingerprint (or :last)")
	}

	info, err := a.resolveFile(ctx, flags.Arg(0))
	if err != nil {
		return err
	}
	trace, err := a.repo.RecordTrack(ctx, info.ID)
	if err != nil {
		return err
	}
	if len(trace) == 0 {
		return fmt.Errorf("file %s has no GPS trace to draw", info.Fingerprint)
	}

	drawer, err := route.NewDrawer(a.cfg.Route)
	if err != nil {
		return err
	}
	markers := []route.Marker{
		{Label: "s", Location: trace[0]},
		{Label: "f", Location: trace[len(trace)-1]},
	}
	image, err := drawer.DrawRoute(ctx, trace, markers)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, image, 0o644); err != nil {
		return err
	}
	log.Printf("wrote route image for %s to %s", info.Fingerprint, *output)
	return nil
}

// expandPaths resolves the mix of file and directory arguments into the flat
// list of FIT files to import, in argument order.
func expandPaths(paths []string, recursive bool) ([]string, error) {
	var files []string
	for _, path := range paths {
		stat, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !stat.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if !recursive && p != path {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.EqualFold(filepath.Ext(p), ".fit") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
