package indexer

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"avplay/internal/logging"
	"avplay/internal/metrics"
	"avplay/internal/playlist"
)

// Indexer keeps the playlist manager in sync with a directory of playlist
// files. Each file is loaded under its relative path without extension.
type Indexer struct {
	manager       *playlist.Manager
	dir           string
	scanInterval  time.Duration
	loadOptions   playlist.LoadOptions
	walkerConfig  ParallelWalkerConfig
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	scanMu        sync.Mutex
	isScanning    bool
	lastScanTime  time.Time
	lastScanError error
	startTime     time.Time

	// known maps playlist names loaded by the indexer to the fingerprint of
	// the file they were loaded from.
	stateMu sync.Mutex
	known   map[string]string

	filesLoaded atomic.Int64

	onScanComplete func(ScanResult)
}

// ScanResult summarizes one scan.
type ScanResult struct {
	Found    int               `json:"found"`
	Loaded   []string          `json:"loaded"`
	Removed  []string          `json:"removed"`
	Failed   map[string]string `json:"failed,omitempty"`
	Duration time.Duration     `json:"duration"`
}

// New creates an indexer for dir. A scanInterval of zero disables periodic
// rescans.
func New(manager *playlist.Manager, dir string, scanInterval time.Duration) *Indexer {
	return &Indexer{
		manager:      manager,
		dir:          dir,
		scanInterval: scanInterval,
		walkerConfig: DefaultParallelWalkerConfig(),
		stopChan:     make(chan struct{}),
		startTime:    time.Now(),
		known:        make(map[string]string),
	}
}

// SetLoadOptions sets the options used for every playlist load.
func (idx *Indexer) SetLoadOptions(opts playlist.LoadOptions) {
	idx.loadOptions = opts
}

// SetParallelConfig sets the parallel walker configuration.
func (idx *Indexer) SetParallelConfig(config ParallelWalkerConfig) {
	idx.walkerConfig = config
}

// SetOnScanComplete sets a callback invoked after every successful scan.
func (idx *Indexer) SetOnScanComplete(callback func(ScanResult)) {
	idx.onScanComplete = callback
}

// Start runs an initial scan in the background and then rescans on the
// configured interval until Stop is called.
func (idx *Indexer) Start() {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		logging.Info("Starting initial playlist scan of %s", idx.dir)
		if _, err := idx.Scan(idx.context()); err != nil {
			logging.Error("Initial playlist scan error: %v", err)
		}
		idx.periodicScan()
	}()
}

// Stop ends periodic scanning and waits for a running scan to finish.
func (idx *Indexer) Stop() {
	idx.stopOnce.Do(func() { close(idx.stopChan) })
	idx.wg.Wait()
}

// context returns a context canceled when the indexer stops.
func (idx *Indexer) context() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-idx.stopChan:
		case <-ctx.Done():
		}
		cancel()
	}()
	return ctx
}

func (idx *Indexer) periodicScan() {
	if idx.scanInterval <= 0 {
		<-idx.stopChan
		return
	}

	ticker := time.NewTicker(idx.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logging.Debug("Periodic playlist scan triggered")
			if _, err := idx.Scan(idx.context()); err != nil {
				logging.Error("Periodic playlist scan failed: %v", err)
			}
		case <-idx.stopChan:
			logging.Info("Playlist scanning stopped")
			return
		}
	}
}

// Scan walks the directory once. New and modified files are loaded into the
// manager; playlists whose files disappeared are removed from it. A scan that
// starts while another is running returns an empty result.
func (idx *Indexer) Scan(ctx context.Context) (ScanResult, error) {
	if !idx.tryStartScanning() {
		logging.Info("Playlist scan already in progress, skipping...")
		return ScanResult{}, nil
	}

	start := time.Now()
	metrics.ScannerRunsTotal.Inc()

	result, err := idx.scan(ctx)
	result.Duration = time.Since(start)
	idx.finishScanning(err)

	if err != nil {
		metrics.ScannerErrors.Inc()
		return result, err
	}

	logging.Info("Playlist scan complete: %d found, %d loaded, %d removed, %d failed in %v",
		result.Found, len(result.Loaded), len(result.Removed), len(result.Failed), result.Duration)
	if idx.onScanComplete != nil {
		idx.onScanComplete(result)
	}
	return result, nil
}

func (idx *Indexer) scan(ctx context.Context) (ScanResult, error) {
	files, err := NewParallelWalker(ctx, idx.dir, idx.walkerConfig).Walk()
	if err != nil {
		return ScanResult{}, err
	}

	result := ScanResult{Found: len(files), Loaded: []string{}, Removed: []string{}}
	seen := make(map[string]PlaylistFile, len(files))
	sources := make(map[string]string)

	idx.stateMu.Lock()
	for _, f := range files {
		if prev, dup := seen[f.Name]; dup {
			logging.Warn("Ignoring %s: name %q already taken by %s", f.RelPath, f.Name, prev.RelPath)
			continue
		}
		seen[f.Name] = f
		if idx.known[f.Name] != f.Fingerprint {
			sources[f.Name] = f.Path
		}
	}
	var gone []string
	for name := range idx.known {
		if _, ok := seen[name]; !ok {
			gone = append(gone, name)
		}
	}
	idx.stateMu.Unlock()

	failures := idx.manager.LoadAll(ctx, sources, idx.loadOptions)

	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()

	for name := range sources {
		if err, failed := failures[name]; failed {
			if result.Failed == nil {
				result.Failed = make(map[string]string)
			}
			result.Failed[name] = err.Error()
			metrics.ScannerErrors.Inc()
			logging.Warn("Failed to load playlist %s: %v", seen[name].RelPath, err)
			continue
		}
		idx.known[name] = seen[name].Fingerprint
		result.Loaded = append(result.Loaded, name)
	}
	for _, name := range gone {
		delete(idx.known, name)
		if idx.manager.Remove(name) {
			result.Removed = append(result.Removed, name)
		}
	}

	metrics.ScannerFilesLoaded.Add(float64(len(result.Loaded)))
	idx.filesLoaded.Add(int64(len(result.Loaded)))
	slices.Sort(result.Loaded)
	slices.Sort(result.Removed)
	return result, nil
}

// tryStartScanning attempts to start a scan, returns false if already in progress.
func (idx *Indexer) tryStartScanning() bool {
	idx.scanMu.Lock()
	defer idx.scanMu.Unlock()

	if idx.isScanning {
		return false
	}
	idx.isScanning = true
	return true
}

func (idx *Indexer) finishScanning(err error) {
	idx.scanMu.Lock()
	defer idx.scanMu.Unlock()

	idx.isScanning = false
	idx.lastScanError = err
	if err == nil {
		idx.lastScanTime = time.Now()
	}
}

// TriggerScan starts a scan in the background.
func (idx *Indexer) TriggerScan() {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		if _, err := idx.Scan(idx.context()); err != nil {
			logging.Error("Manually triggered playlist scan failed: %v", err)
		}
	}()
}

// IsScanning returns whether a scan is currently in progress.
func (idx *Indexer) IsScanning() bool {
	idx.scanMu.Lock()
	defer idx.scanMu.Unlock()
	return idx.isScanning
}

// LastScanTime returns the time of the last successful scan.
func (idx *Indexer) LastScanTime() time.Time {
	idx.scanMu.Lock()
	defer idx.scanMu.Unlock()
	return idx.lastScanTime
}

// Status contains scanner health information.
type Status struct {
	Directory     string    `json:"directory"`
	Scanning      bool      `json:"scanning"`
	StartTime     time.Time `json:"startTime"`
	Uptime        string    `json:"uptime"`
	LastScanned   time.Time `json:"lastScanned,omitempty"`
	LastScanError string    `json:"lastScanError,omitempty"`
	Tracked       int       `json:"tracked"`
	FilesLoaded   int64     `json:"filesLoaded"`
}

// GetStatus returns scanner health information.
func (idx *Indexer) GetStatus() Status {
	idx.scanMu.Lock()
	status := Status{
		Directory:   idx.dir,
		Scanning:    idx.isScanning,
		StartTime:   idx.startTime,
		Uptime:      time.Since(idx.startTime).Round(time.Second).String(),
		LastScanned: idx.lastScanTime,
		FilesLoaded: idx.filesLoaded.Load(),
	}
	if idx.lastScanError != nil {
		status.LastScanError = idx.lastScanError.Error()
	}
	idx.scanMu.Unlock()

	idx.stateMu.Lock()
	status.Tracked = len(idx.known)
	idx.stateMu.Unlock()
	return status
}
