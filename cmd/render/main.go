package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/coreos/go-semver/semver"
	"github.com/sirupsen/logrus"

	"fractalcraft.ai/internal/config"
	"fractalcraft.ai/internal/console"
	"fractalcraft.ai/internal/logging"
	"fractalcraft.ai/internal/persistence/indexdb"
	plog "fractalcraft.ai/internal/persistence/log"
	"fractalcraft.ai/internal/preview"
	"fractalcraft.ai/internal/protocol"
	"fractalcraft.ai/internal/rcon"
	"fractalcraft.ai/internal/render"
	"fractalcraft.ai/internal/transport/webrcon"
)

var toolVersion = semver.New("1.2.0")

const (
	transportRCON    = "rcon"
	transportWebRCON = "webrcon"
)

type options struct {
	Addr       string
	Password   string
	Transport  string
	ConfigPath string
	Transcript string
	IndexPath  string
	PreviewDir string
	Timeout    time.Duration
}

// DefaultPassword is the password sent when -password is not given.
const DefaultPassword = "python"

type cliFlags struct {
	opts     options
	logLevel string
	version  bool
}

func parseFlags(args []string) (cliFlags, error) {
	var f cliFlags
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.StringVar(&f.opts.Addr, "addr", rcon.DefaultAddr, "server address host:port")
	fs.StringVar(&f.opts.Password, "password", DefaultPassword, "rcon password")
	fs.StringVar(&f.opts.Transport, "transport", transportRCON, "transport: rcon|webrcon")
	fs.StringVar(&f.opts.ConfigPath, "config", "", "pattern file (yaml); empty uses the built-in patterns")
	fs.StringVar(&f.opts.Transcript, "transcript", "", "write a command transcript (.jsonl, .jsonl.zst or .jsonl.gz)")
	fs.StringVar(&f.opts.IndexPath, "index", "", "record runs in this sqlite db (optional)")
	fs.StringVar(&f.opts.PreviewDir, "preview", "", "write a png preview of each pattern into this dir (optional)")
	fs.DurationVar(&f.opts.Timeout, "timeout", 0, "per-command timeout; 0 waits forever")
	fs.StringVar(&f.logLevel, "log_level", "info", "log level: trace|debug|info|warn|error")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	err := fs.Parse(args)
	return f, err
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if f.version {
		fmt.Println(toolVersion)
		return
	}

	logger, err := logging.New(f.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "log_level:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, f.opts, os.Stdin, os.Stdout, logger); err != nil {
		logger.Fatalf("render: %v", err)
	}
}

// run is the whole session: connect, draw every pattern, honour the final decision.
func run(ctx context.Context, opts options, in io.Reader, out io.Writer, logger logrus.FieldLogger) (err error) {
	log := logging.Component(logger, "render")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	conn, err := connect(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	fmt.Fprintf(out, "Connected to %s\n", opts.Addr)

	var cmd protocol.Commander = conn

	var idx *indexdb.SQLiteIndex
	runID := ""
	if opts.IndexPath != "" {
		idx, err = indexdb.OpenSQLite(opts.IndexPath)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		runID, err = idx.StartRun(ctx, opts.Addr, opts.Transport, cfg.Digest(), cfg.JSON())
		if err != nil {
			return err
		}
		log = log.WithField("run_id", runID)
	}
	if runID == "" {
		runID = fmt.Sprintf("run-%d", time.Now().UnixNano())
	}

	if opts.Transcript != "" {
		w, err := plog.NewJSONLWriter(opts.Transcript)
		if err != nil {
			return fmt.Errorf("open transcript: %w", err)
		}
		rec := plog.NewRecorder(conn, w, runID)
		cmd = rec
		defer func() {
			if cerr := w.Close(); cerr != nil {
				log.WithError(cerr).Warn("close transcript")
			}
			if rerr := rec.Err(); rerr != nil {
				log.WithError(rerr).Warn("transcript incomplete")
			}
		}()
	}

	sess := render.NewSession(cmd, render.Options{
		Center: cfg.Center,
		Pacing: cfg.Pacing,
		Out:    out,
		Logger: logging.Component(logger, "session"),
		BeforeDraw: func(i int, p config.Pattern) {
			if opts.PreviewDir == "" {
				return
			}
			path := filepath.Join(opts.PreviewDir, preview.FileName(i, ".png"))
			if err := preview.Write(path, p, preview.DefaultScale); err != nil {
				log.WithError(err).Warn("preview")
				return
			}
			log.WithField("path", path).Debug("preview written")
		},
		OnPattern: func(r render.PatternResult) {
			if idx == nil {
				return
			}
			err := idx.RecordPattern(ctx, indexdb.PatternRow{
				RunID:   runID,
				Index:   r.Index,
				Label:   r.Pattern.Label,
				Width:   r.Pattern.Width,
				Height:  r.Pattern.Height,
				MaxIter: r.Pattern.MaxIter,
				Scale:   r.Pattern.Scale,
				Block:   r.Kind.String(),
				Cells:   r.Cells,
				Elapsed: r.Elapsed,
			})
			if err != nil {
				log.WithError(err).Warn("index pattern")
			}
		},
	})

	start := time.Now()
	outcome, err := sess.Run(ctx, cfg.Patterns, console.NewPrompter(in, out))
	if idx != nil {
		decision := ""
		if err == nil {
			decision = outcome.Decision.String()
		}
		if ferr := idx.FinishRun(context.WithoutCancel(ctx), runID, decision); ferr != nil {
			log.WithError(ferr).Warn("index finish")
		}
	}
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"decision": outcome.Decision,
		"patterns": len(outcome.Patterns),
		"commands": outcome.Commands,
		"removed":  outcome.Removed,
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("session finished")
	return nil
}

type commandConn interface {
	protocol.Commander
	io.Closer
}

func connect(ctx context.Context, opts options, logger logrus.FieldLogger) (commandConn, error) {
	switch opts.Transport {
	case transportRCON, "":
		c, err := rcon.Dial(ctx, opts.Addr,
			rcon.WithTimeout(opts.Timeout),
			rcon.WithLogger(logging.Component(logger, "rcon")))
		if err != nil {
			return nil, err
		}
		if err := c.Authenticate(ctx, opts.Password); err != nil {
			_ = c.Close()
			if errors.Is(err, rcon.ErrAuthFailed) {
				return nil, fmt.Errorf("%s: %w", opts.Addr, err)
			}
			return nil, err
		}
		return c, nil
	case transportWebRCON:
		return webrcon.Dial(ctx, opts.Addr, opts.Password, opts.Timeout)
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.Transport)
	}
}
