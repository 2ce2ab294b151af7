package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AlecAivazis/survey/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/minios-linux/objtrans/batch"
	"github.com/minios-linux/objtrans/config"
	"github.com/minios-linux/objtrans/engine"
	"github.com/minios-linux/objtrans/i18n"
	"github.com/minios-linux/objtrans/lockfile"
	"github.com/minios-linux/objtrans/memorg"
	"github.com/minios-linux/objtrans/metadata"
	"github.com/minios-linux/objtrans/soap"
)

// session is everything a command needs to talk to one org.
type session struct {
	cfg    *config.File
	engine *engine.Engine
	// org is set when running against a snapshot.
	org *memorg.Org
	// orgKey identifies the org in objtrans.lock.
	orgKey string
	bars   *barTracker
}

// loadConfig reads --config, or .objtrans.yaml from the working directory
// when present.
func loadConfig() (*config.File, error) {
	if global.configPath != "" {
		return config.LoadPath(global.configPath)
	}
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// openSession connects to the org named by flags, environment and config,
// or loads the --snapshot file instead.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	var svc metadata.Service
	apiVersion := cfg.APIVersion

	if global.snapshotPath != "" {
		org, err := memorg.Load(global.snapshotPath)
		if err != nil {
			return nil, err
		}
		s.org = org
		s.orgKey = "snapshot/" + filepath.Base(global.snapshotPath)
		svc = org
		if global.apiVersion != "" {
			apiVersion = global.apiVersion
		}
	} else {
		conn, err := config.ResolveConnection(cfg, config.Connection{
			InstanceURL: global.instanceURL,
			SessionID:   global.sessionID,
			APIVersion:  global.apiVersion,
		})
		if err != nil {
			return nil, err
		}
		retries := config.DefaultRetries
		if cfg.Retries != nil {
			retries = *cfg.Retries
		}
		client, err := soap.New(soap.Config{
			InstanceURL: conn.InstanceURL,
			SessionID:   conn.SessionID,
			APIVersion:  conn.APIVersion,
			Timeout:     cfg.Timeout,
			Retries:     retries,
			Proxy:       cfg.Proxy,
			Verbose:     global.verbose,
		})
		if err != nil {
			return nil, err
		}
		if global.verbose {
			logInfo(i18n.T("Endpoint: %s"), client.Endpoint())
		}
		svc = client
		s.orgKey = lockfile.OrgKey(conn.InstanceURL)
		apiVersion = conn.APIVersion
	}

	concurrency := cfg.Concurrency
	if global.concurrency >= 0 {
		concurrency = global.concurrency
	}
	opts := batch.Options{Concurrency: concurrency}
	if showProgress() {
		s.bars = newBarTracker()
		opts.Tracker = s.bars
	}

	s.engine = &engine.Engine{Service: svc, APIVersion: apiVersion, Batch: opts}
	return s, nil
}

// finish stops the progress display. It must run before any further
// output is printed.
func (s *session) finish() {
	if s.bars != nil {
		s.bars.Wait()
		s.bars = nil
	}
}

// saveSnapshot writes the snapshot back after a write operation.
func (s *session) saveSnapshot() error {
	if s.org == nil {
		return nil
	}
	return s.org.Save(global.snapshotPath)
}

// ---------------------------------------------------------------------------
// Object and locale selection
// ---------------------------------------------------------------------------

// objectsOrDefault returns the flag value, else the configured list.
func (s *session) objectsOrDefault(flag []string) []string {
	if len(flag) > 0 {
		return flag
	}
	return s.cfg.Objects
}

// localesOrDefault returns the flag value, else the configured list.
func (s *session) localesOrDefault(flag []string) []string {
	if len(flag) > 0 {
		return flag
	}
	return s.cfg.Locales
}

// chooseObjects asks for the objects to export when none were given.
func (s *session) chooseObjects(ctx context.Context) ([]string, error) {
	if !isTerminal(os.Stdin) {
		return nil, fmt.Errorf("%s", i18n.T("no objects given: use --objects or objects in .objtrans.yaml"))
	}
	names, err := s.engine.Objects(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, engine.ErrNoOrgResults
	}
	var selected []string
	prompt := &survey.MultiSelect{
		Message:  i18n.T("Select objects:"),
		Options:  names,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &selected, survey.WithValidator(survey.MinItems(1))); err != nil {
		return nil, err
	}
	return selected, nil
}

// ---------------------------------------------------------------------------
// Progress
// ---------------------------------------------------------------------------

// showProgress reports whether stage progress bars are drawn.
func showProgress() bool {
	return !global.verbose && !global.jsonOutput && isTerminal(os.Stderr)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// barTracker draws one bar per stage.
type barTracker struct {
	progress *mpb.Progress
	mu       sync.Mutex
	bars     []*mpb.Bar
}

var _ batch.Tracker = (*barTracker)(nil)

func newBarTracker() *barTracker {
	return &barTracker{progress: mpb.New(mpb.WithWidth(60), mpb.WithOutput(os.Stderr))}
}

func (t *barTracker) Track(stage string, chunks int) batch.Progress {
	if chunks == 0 {
		return nil
	}
	bar := t.progress.AddBar(int64(chunks),
		mpb.PrependDecorators(
			decor.Name(stage, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Counters(0, " | %d/%d"),
		),
	)
	t.mu.Lock()
	t.bars = append(t.bars, bar)
	t.mu.Unlock()

	return func(done, total int) {
		bar.SetCurrent(int64(done))
	}
}

// Wait aborts bars left unfinished by a failed stage and waits for the
// display to settle.
func (t *barTracker) Wait() {
	t.mu.Lock()
	for _, b := range t.bars {
		if !b.Completed() {
			b.Abort(false)
		}
	}
	t.mu.Unlock()
	t.progress.Wait()
}
