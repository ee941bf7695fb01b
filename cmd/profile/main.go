//go:build profiling
// +build profiling

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"
	"sync/atomic"
	"time"

	"github.com/felixge/fgprof"
	"github.com/grafana/pyroscope-go"

	"github.com/meigma/ferry"
)

type profileKind string

const (
	profileCPU     profileKind = "cpu"
	profileFG      profileKind = "fgprof"
	profileTrace   profileKind = "trace"
	profileNone    profileKind = "none"
	defaultPayload             = "tmp/profiledata"
)

const (
	modeSingle  = "single"
	modeArchive = "archive"
	modeBoth    = "both"
)

func main() {
	var (
		payload  = flag.String("payload", defaultPayload, "directory of files to upload")
		mode     = flag.String("mode", modeSingle, "mode: single, archive, or both")
		apiURL   = flag.String("api-url", "", "GoFile API URL (default: local discard server)")
		upURL    = flag.String("upload-url", "", "GoFile upload URL template (default: local discard server)")
		profile  = flag.String("profile", "cpu", "profile type: cpu, fgprof, trace, none")
		outDir   = flag.String("out", "profiles", "output directory for profiles")
		label    = flag.String("label", "", "label suffix for profile files")
		repeat   = flag.Int("repeat", 1, "number of iterations")
		level    = flag.Int("level", -1, "deflate level for archive mode (-2..9)")
		logLevel = flag.String("log-level", "", "log level: debug, info, warn, error")
		timeout  = flag.Duration("timeout", 15*time.Minute, "overall timeout")
		pyroAddr = flag.String("pyroscope", "", "Pyroscope server URL (enables streaming, disables local profiles)")
	)
	flag.Parse()

	runID := time.Now().UTC().Format("20060102T150405Z")

	modeValue := strings.ToLower(*mode)
	if modeValue != modeSingle && modeValue != modeArchive && modeValue != modeBoth {
		log.Fatalf("invalid mode %q (expected %s, %s, or %s)", *mode, modeSingle, modeArchive, modeBoth)
	}

	profileKindValue := profileKind(strings.ToLower(*profile))
	if !isValidProfile(profileKindValue) {
		log.Fatalf("invalid profile %q (expected cpu, fgprof, trace, none)", *profile)
	}

	files, err := payloadFiles(*payload)
	if err != nil {
		log.Fatalf("payload %q: %v", *payload, err)
	}
	if *repeat < 1 {
		log.Fatalf("repeat must be >= 1")
	}

	// When Pyroscope is enabled, stream profiles instead of writing locally
	var pyroProfiler *pyroscope.Profiler
	if *pyroAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "ferry-profile",
			ServerAddress:   *pyroAddr,
			// Grafana Cloud requires BasicAuth
			BasicAuthUser:     os.Getenv("PYROSCOPE_BASIC_AUTH_USER"),
			BasicAuthPassword: os.Getenv("PYROSCOPE_BASIC_AUTH_PASSWORD"),
			UploadRate:        5 * time.Second,
			Logger:            pyroscope.StandardLogger,
			Tags: map[string]string{
				"mode":    modeValue,
				"git_sha": os.Getenv("GITHUB_SHA"),
				"git_ref": os.Getenv("GITHUB_REF_NAME"),
				"run_id":  runID,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("start pyroscope: %v", err)
		}
		pyroProfiler = profiler
		log.Printf("streaming profiles to %s", *pyroAddr)
	} else if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create profile output dir: %v", err)
	}

	labelParts := []string{modeValue}
	if *label != "" {
		labelParts = append(labelParts, sanitizeLabel(*label))
	}
	labelParts = append(labelParts, runID)
	labelValue := strings.Join(labelParts, "_")

	var stopProfile func() error
	if *pyroAddr == "" {
		stopProfile, err = startProfile(profileKindValue, *outDir, labelValue)
		if err != nil {
			log.Fatalf("start profile: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	opts := []ferry.Option{ferry.WithCompressionLevel(*level)}
	if *logLevel != "" {
		lvl, err := parseLogLevel(*logLevel)
		if err != nil {
			log.Fatalf("parse log level: %v", err)
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
		opts = append(opts, ferry.WithLogger(logger))
	}

	if *apiURL == "" {
		sink := newDiscardServer()
		defer sink.Close()
		*apiURL = sink.URL
		*upURL = sink.URL + "/{server}/uploadFile"
	}
	opts = append(opts, ferry.WithHostingURLs(*apiURL, *upURL))

	pipeline, err := ferry.NewPipeline(dirSource{}, quietMessenger{}, opts...)
	if err != nil {
		log.Fatalf("create pipeline: %v", err)
	}

	for i := range *repeat {
		if *repeat > 1 {
			log.Printf("iteration %d/%d", i+1, *repeat)
		}
		if modeValue == modeSingle || modeValue == modeBoth {
			start := time.Now()
			for _, item := range files {
				job := ferry.Job{Items: []ferry.SourceItem{item}, Mode: ferry.ModeSingle}
				if _, err := pipeline.Run(ctx, job); err != nil {
					log.Fatalf("single upload %s: %v", item.Name, err)
				}
			}
			log.Printf("single uploads complete: %d files in %s", len(files), time.Since(start))
		}
		if modeValue == modeArchive || modeValue == modeBoth {
			start := time.Now()
			job := ferry.Job{Items: files, Mode: ferry.ModeArchive}
			result, err := pipeline.Run(ctx, job)
			if err != nil {
				log.Fatalf("archive upload: %v", err)
			}
			log.Printf("archive upload complete: %d bytes in %s", result.Size, time.Since(start))
		}
	}

	// Stop profiling - either Pyroscope or local
	if pyroProfiler != nil {
		if err := pyroProfiler.Stop(); err != nil {
			log.Fatalf("stop pyroscope: %v", err)
		}
		log.Printf("pyroscope profiling stopped")
		return
	}
	if stopErr := stopProfile(); stopErr != nil {
		log.Fatalf("stop profile: %v", stopErr)
	}
	if err := writeHeapProfile(*outDir, labelValue); err != nil {
		log.Fatalf("write heap profile: %v", err)
	}
	if err := writeAllocsProfile(*outDir, labelValue); err != nil {
		log.Fatalf("write allocs profile: %v", err)
	}
}

// payloadFiles lists the regular files directly inside dir.
func payloadFiles(dir string) ([]ferry.SourceItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var items []ferry.SourceItem
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		items = append(items, ferry.SourceItem{
			Ref:  filepath.Join(dir, e.Name()),
			Size: info.Size(),
			Name: e.Name(),
		})
	}
	if len(items) == 0 {
		return nil, errors.New("no files")
	}
	return items, nil
}

type dirSource struct{}

func (dirSource) Fetch(_ context.Context, ref string) (io.ReadCloser, int64, error) {
	f, err := os.Open(ref)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

type quietMessenger struct{}

var messageID atomic.Int64

func (quietMessenger) Send(_ context.Context, chat ferry.ChatRef, _ string) (ferry.MessageHandle, error) {
	return ferry.MessageHandle{ChatID: chat.ChatID, MessageID: messageID.Add(1)}, nil
}

func (quietMessenger) Edit(context.Context, ferry.MessageHandle, string) error { return nil }

// newDiscardServer answers getServer and drains uploads so runs measure
// the local side of the pipeline.
func newDiscardServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /getServer", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "data": map[string]string{"server": "local"}})
	})
	mux.HandleFunc("POST /{server}/uploadFile", func(w http.ResponseWriter, r *http.Request) {
		n, err := io.Copy(io.Discard, r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"status": "ok", "data": map[string]string{
			"downloadPage": fmt.Sprintf("http://local/d/%d", n),
		}})
	})
	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func isValidProfile(kind profileKind) bool {
	switch kind {
	case profileCPU, profileFG, profileTrace, profileNone:
		return true
	default:
		return false
	}
}

func startProfile(kind profileKind, outDir, label string) (func() error, error) {
	switch kind {
	case profileCPU:
		f, err := os.Create(filepath.Join(outDir, "cpu_"+label+".pprof"))
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		return func() error {
			pprof.StopCPUProfile()
			return f.Close()
		}, nil
	case profileFG:
		f, err := os.Create(filepath.Join(outDir, "fgprof_"+label+".pprof"))
		if err != nil {
			return nil, err
		}
		stop := fgprof.Start(f, fgprof.FormatPprof)
		return func() error {
			return errors.Join(stop(), f.Close())
		}, nil
	case profileTrace:
		f, err := os.Create(filepath.Join(outDir, "trace_"+label+".out"))
		if err != nil {
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			return nil, err
		}
		return func() error {
			trace.Stop()
			return f.Close()
		}, nil
	case profileNone:
		return func() error { return nil }, nil
	default:
		return nil, fmt.Errorf("unknown profile type: %s", kind)
	}
}

func writeHeapProfile(outDir, label string) error {
	f, err := os.Create(filepath.Join(outDir, "heap_"+label+".pprof"))
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

func writeAllocsProfile(outDir, label string) error {
	f, err := os.Create(filepath.Join(outDir, "allocs_"+label+".pprof"))
	if err != nil {
		return err
	}
	defer f.Close()
	return pprof.Lookup("allocs").WriteTo(f, 0)
}

func sanitizeLabel(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, value)
}

func parseLogLevel(value string) (slog.Leveler, error) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return nil, fmt.Errorf("unknown level %q", value)
	}
}
