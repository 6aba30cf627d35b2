package indexer

import (
	"context"
	"crypto/md5" //nolint:gosec // MD5 used for change fingerprints, not security
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"avplay/internal/filesystem"
	"avplay/internal/logging"
	"avplay/internal/mediatypes"
	"avplay/internal/workers"
)

// ParallelWalkerConfig configures the parallel directory walker
type ParallelWalkerConfig struct {
	// NumWorkers is the number of parallel stat workers (0 = auto based on CPU)
	NumWorkers int
	// ChannelBuffer is the size of the work channel buffer
	ChannelBuffer int
	// SkipHidden skips files and directories starting with "."
	SkipHidden bool
}

// DefaultParallelWalkerConfig sizes the pool with workers.ForMixed, which
// honours the LOAD_WORKERS override.
func DefaultParallelWalkerConfig() ParallelWalkerConfig {
	return ParallelWalkerConfig{
		NumWorkers:    workers.ForMixed(8),
		ChannelBuffer: 256,
		SkipHidden:    true,
	}
}

// PlaylistFile is a playlist found on disk.
type PlaylistFile struct {
	// Name is the path relative to the scanned directory, without extension,
	// using forward slashes ("rock/classics").
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	RelPath     string    `json:"relPath"`
	Ext         string    `json:"ext"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"modTime"`
	Fingerprint string    `json:"-"`
}

type fileJob struct {
	path    string
	relPath string
}

type fileResult struct {
	file *PlaylistFile
	err  error
}

// ParallelWalker walks a directory and stats playlist files in parallel
type ParallelWalker struct {
	config ParallelWalkerConfig
	root   string

	jobs    chan fileJob
	results chan fileResult

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	filesProcessed atomic.Int64
	errorsCount    atomic.Int64
}

// NewParallelWalker creates a new parallel directory walker
func NewParallelWalker(ctx context.Context, root string, config ParallelWalkerConfig) *ParallelWalker {
	if config.NumWorkers <= 0 {
		config.NumWorkers = workers.ForMixed(8)
	}
	ctx, cancel := context.WithCancel(ctx)

	return &ParallelWalker{
		config:  config,
		root:    root,
		jobs:    make(chan fileJob, config.ChannelBuffer),
		results: make(chan fileResult, config.ChannelBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Walk returns every playlist file under the root, sorted by relative path.
func (pw *ParallelWalker) Walk() ([]PlaylistFile, error) {
	defer pw.cancel()
	logging.Debug("Starting playlist walk of %s with %d workers", pw.root, pw.config.NumWorkers)
	startTime := time.Now()

	for i := 0; i < pw.config.NumWorkers; i++ {
		pw.wg.Add(1)
		go pw.worker(i)
	}

	var found []PlaylistFile
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for result := range pw.results {
			if result.err != nil {
				pw.errorsCount.Add(1)
				logging.Debug("Error processing file: %v", result.err)
				continue
			}
			if result.file != nil {
				found = append(found, *result.file)
			}
		}
	}()

	err := pw.walkAndEnqueue()

	close(pw.jobs)
	pw.wg.Wait()
	close(pw.results)
	<-collected

	slices.SortFunc(found, func(a, b PlaylistFile) int { return strings.Compare(a.RelPath, b.RelPath) })
	logging.Debug("Playlist walk complete: %d files in %v (errors: %d)",
		len(found), time.Since(startTime), pw.errorsCount.Load())
	if err == nil {
		err = pw.ctx.Err()
	}
	return found, err
}

func (pw *ParallelWalker) walkAndEnqueue() error {
	err := filepath.WalkDir(pw.root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-pw.ctx.Done():
			return fs.SkipAll
		default:
		}

		if err != nil {
			if path == pw.root {
				return err
			}
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}

		if pw.config.SkipHidden && path != pw.root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isPlaylistFile(d.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(pw.root, path)
		if err != nil {
			//nolint:nilerr // skip this file but keep walking
			return nil
		}

		select {
		case pw.jobs <- fileJob{path: path, relPath: relPath}:
		case <-pw.ctx.Done():
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", pw.root, err)
	}
	return nil
}

func (pw *ParallelWalker) worker(id int) {
	defer pw.wg.Done()

	for job := range pw.jobs {
		select {
		case <-pw.ctx.Done():
			return
		default:
		}

		result := pw.processFile(job)
		if result.err == nil && result.file != nil {
			pw.filesProcessed.Add(1)
		}

		select {
		case pw.results <- result:
		case <-pw.ctx.Done():
			return
		}
	}
	logging.Debug("Walker %d finished", id)
}

// processFile stats one playlist file. Stat goes through the retrying
// filesystem helpers so stale NFS handles do not drop a playlist.
func (pw *ParallelWalker) processFile(job fileJob) fileResult {
	info, err := filesystem.StatWithRetry(job.path, filesystem.DefaultRetryConfig())
	if err != nil {
		return fileResult{err: err}
	}
	if !info.Mode().IsRegular() {
		return fileResult{}
	}

	rel := filepath.ToSlash(job.relPath)
	ext := mediatypes.Ext(rel)
	return fileResult{
		file: &PlaylistFile{
			Name:        strings.TrimSuffix(rel, filepath.Ext(rel)),
			Path:        job.path,
			RelPath:     rel,
			Ext:         ext,
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			Fingerprint: fmt.Sprintf("%x", md5.Sum([]byte(fmt.Sprintf("%s%d%d", rel, info.Size(), info.ModTime().UnixNano())))), //nolint:gosec // MD5 used for change fingerprints, not security
		},
	}
}

// Stop cancels the parallel walk
func (pw *ParallelWalker) Stop() {
	pw.cancel()
}

// Stats returns current processing statistics
func (pw *ParallelWalker) Stats() (files, errors int64) {
	return pw.filesProcessed.Load(), pw.errorsCount.Load()
}

func isPlaylistFile(name string) bool {
	return mediatypes.GetFileType(mediatypes.Ext(name)) == mediatypes.FileTypePlaylist
}
