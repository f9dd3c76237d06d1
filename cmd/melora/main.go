// Command melora recommends songs by mood and genre.
//
// Usage:
//
//	melora [serve] [flags]   serve the web UI and JSON API (default)
//	melora train [flags]     fit the mood model and write its artifacts
//	melora import [flags]    copy a CSV dataset into PostgreSQL
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/justestif/melora/internal/catalog"
	"github.com/justestif/melora/internal/config"
	"github.com/justestif/melora/internal/db"
	"github.com/justestif/melora/internal/logging"
	"github.com/justestif/melora/internal/mood"
	"github.com/justestif/melora/internal/recommend"
	"github.com/justestif/melora/internal/spotify"
	"github.com/justestif/melora/internal/web"
	webfs "github.com/justestif/melora/web"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return serve(args)
	case "train":
		return train(args)
	case "import":
		return importCSV(args)
	default:
		return fmt.Errorf("unknown command %q (want serve, train or import)", cmd)
	}
}

// setup parses flags, loads the configuration and initializes logging.
// override runs after the config is loaded so flags win over it.
func setup(name string, args []string, define func(*pflag.FlagSet), override func(*config.Config)) (*config.Config, error) {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a YAML config file")
	if define != nil {
		define(flags)
	}
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return cfg, nil
}

// openSource returns the catalog source named by the config. The returned
// close function releases any database connection.
func openSource(ctx context.Context, cfg *config.Config) (catalog.Source, func(), error) {
	if cfg.Catalog.Source != config.SourcePostgres {
		return catalog.FileSource{Path: cfg.Catalog.Path}, func() {}, nil
	}

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	return database.Source(), database.Close, nil
}

func serve(args []string) error {
	var addr string
	cfg, err := setup("serve", args,
		func(f *pflag.FlagSet) {
			f.StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
		},
		func(c *config.Config) {
			if addr != "" {
				c.Server.Addr = addr
			}
		})
	if err != nil {
		return err
	}
	log := logging.Component("main")

	ctx := context.Background()
	src, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	engine := recommend.New(src,
		recommend.WithClassifier(func() mood.Classifier {
			c, err := mood.LoadArtifacts(cfg.Model.Path, cfg.Model.EncoderPath, logging.Component("mood"))
			if err != nil {
				log.Warn().Err(err).Msg("mood model unavailable, using rule-based classifier")
				return mood.RuleBased()
			}
			return c
		}),
		recommend.WithPoolSizes(cfg.Recommend.MoodPool, cfg.Recommend.GenrePool),
		recommend.WithMaxResults(cfg.Recommend.MaxResults),
		recommend.WithLogger(logging.Component("recommend")),
	)

	// Fail before listening if the catalog cannot be read.
	if err := engine.Load(ctx); err != nil {
		return err
	}

	var lookup web.TrackLookup
	if cfg.Spotify.LookupEnabled() {
		lookup = spotify.NewWithCredentials(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
		log.Info().Msg("spotify track lookup enabled")
	}

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimit:       cfg.Server.RateLimit,
		TemplatesFS:     templates,
		StaticFS:        static,
		Engine:          engine,
		Lookup:          lookup,
		Logger:          logging.Component("http"),
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}

func train(args []string) error {
	var clusters int
	var modelPath, encoderPath string
	cfg, err := setup("train", args,
		func(f *pflag.FlagSet) {
			f.IntVarP(&clusters, "clusters", "k", 0, "number of k-means clusters (overrides model.clusters)")
			f.StringVar(&modelPath, "model", "", "model artifact path (overrides model.path)")
			f.StringVar(&encoderPath, "encoder", "", "label encoder path (overrides model.encoder_path)")
		},
		func(c *config.Config) {
			if clusters > 0 {
				c.Model.Clusters = clusters
			}
			if modelPath != "" {
				c.Model.Path = modelPath
			}
			if encoderPath != "" {
				c.Model.EncoderPath = encoderPath
			}
		})
	if err != nil {
		return err
	}
	log := logging.Component("train")

	if cfg.Model.Path == "" || cfg.Model.EncoderPath == "" {
		return errors.New("model.path and model.encoder_path must be set")
	}

	ctx := context.Background()
	src, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	raw, err := src.Tracks(ctx)
	if err != nil {
		return err
	}
	tracks := catalog.Dedupe(raw)

	start := time.Now()
	model, encoder, err := mood.Train(tracks, mood.TrainConfig{NumClusters: cfg.Model.Clusters})
	if err != nil {
		return fmt.Errorf("training mood model: %w", err)
	}

	if err := mood.SaveArtifacts(cfg.Model.Path, cfg.Model.EncoderPath, model, encoder); err != nil {
		return err
	}

	log.Info().
		Str("source", src.Name()).
		Int("tracks", len(tracks)).
		Int("clusters", len(model.Centroids)).
		Strs("classes", encoder.Classes).
		Str("model", cfg.Model.Path).
		Str("encoder", cfg.Model.EncoderPath).
		Dur("elapsed", time.Since(start)).
		Msg("mood model trained")
	return nil
}

func importCSV(args []string) error {
	var file string
	cfg, err := setup("import", args,
		func(f *pflag.FlagSet) {
			f.StringVarP(&file, "file", "f", "", "CSV dataset to import (defaults to catalog.path)")
		},
		nil)
	if err != nil {
		return err
	}
	log := logging.Component("import")

	if cfg.Database.URL == "" {
		return errors.New("database.url must be set (MELORA_DATABASE_URL)")
	}
	if file == "" {
		file = cfg.Catalog.Path
	}

	ctx := context.Background()
	started := time.Now()

	src := catalog.FileSource{Path: file}
	tracks, err := src.Tracks(ctx)
	if err != nil {
		return err
	}

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return err
	}

	n, err := database.Tracks().ReplaceAll(ctx, tracks)
	if err != nil {
		return err
	}

	imp := db.Import{
		ID:         uuid.New(),
		Source:     src.Name(),
		Rows:       int(n),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := database.Imports().Record(ctx, imp); err != nil {
		return err
	}

	log.Info().
		Str("import_id", imp.ID.String()).
		Str("source", imp.Source).
		Int("rows", imp.Rows).
		Dur("elapsed", imp.FinishedAt.Sub(imp.StartedAt)).
		Msg("catalog imported")
	return nil
}
