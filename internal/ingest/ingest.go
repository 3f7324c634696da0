// Package ingest builds the song and artist tables from a directory of
// per-song metadata documents.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/llehouerou/songrec/internal/catalog"
)

// ErrNoSongs is returned when a run finds no usable song record.
var ErrNoSongs = errors.New("ingest: no songs found")

const defaultWorkers = 4

// Progress reports the progress of an ingest run.
type Progress struct {
	Phase   string // "scanning", "decoding", "done"
	Current int
	Total   int
	Stats   *Stats // Only populated when Phase == "done"
}

// Stats summarizes an ingest run.
type Stats struct {
	FilesProcessed int // metadata files decoded
	FilesSkipped   int // unreadable or malformed files
	RecordsSkipped int // records without a song or artist id
	Songs          int // songs in the song table
	SongArtists    int // distinct artists referenced by songs
	Artists        int // entries in the artist table
}

func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "total songs: %s\n", humanize.Comma(int64(s.Songs)))
	fmt.Fprintf(&b, "files processed: %s\n", humanize.Comma(int64(s.FilesProcessed)))
	if s.FilesSkipped > 0 {
		fmt.Fprintf(&b, "files skipped: %s\n", humanize.Comma(int64(s.FilesSkipped)))
	}
	if s.RecordsSkipped > 0 {
		fmt.Fprintf(&b, "records skipped: %s\n", humanize.Comma(int64(s.RecordsSkipped)))
	}
	fmt.Fprintf(&b, "artists in songs: %s\n", humanize.Comma(int64(s.SongArtists)))
	fmt.Fprintf(&b, "artists in artist table: %s", humanize.Comma(int64(s.Artists)))
	return b.String()
}

// Options tunes an ingest run.
type Options struct {
	Workers   int    // parallel decoders (default: 4)
	Extension string // metadata file extension (default: ".json")
}

// Result holds the tables built by Run.
type Result struct {
	Songs   []catalog.Song
	Artists []catalog.Artist
	Stats   Stats
}

// fileResult holds the decoded records of one file.
type fileResult struct {
	index int
	docs  []document
	err   error
}

// Ingester walks metadata directories.
type Ingester struct {
	opts Options
	log  zerolog.Logger
}

// New creates an Ingester.
func New(opts Options, log zerolog.Logger) *Ingester {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Extension == "" {
		opts.Extension = ".json"
	}
	opts.Extension = strings.ToLower(opts.Extension)
	return &Ingester{opts: opts, log: log}
}

// Run reads every metadata file under root. Songs keep walk order; the first
// file that mentions an artist defines its name and similar list. progress
// may be nil; when set it is closed before Run returns.
func (in *Ingester) Run(ctx context.Context, root string, progress chan<- Progress) (*Result, error) {
	if progress != nil {
		defer close(progress)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	send(progress, Progress{Phase: "scanning"})
	files, err := in.discoverFiles(ctx, root, progress)
	if err != nil {
		return nil, err
	}

	results, err := in.decodeFiles(ctx, files, progress)
	if err != nil {
		return nil, err
	}

	res := in.assemble(files, results)
	if res.Stats.Songs == 0 {
		return nil, ErrNoSongs
	}

	send(progress, Progress{Phase: "done", Current: len(files), Total: len(files), Stats: &res.Stats})
	return res, nil
}

// discoverFiles walks root and returns the metadata files in lexical order.
func (in *Ingester) discoverFiles(ctx context.Context, root string, progress chan<- Progress) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Skip unreadable entries and keep walking
		if walkErr != nil {
			in.log.Warn().Err(walkErr).Str("path", path).Msg("skipping unreadable entry")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) != in.opts.Extension {
			return nil
		}

		files = append(files, path)
		if len(files)%100 == 0 {
			send(progress, Progress{Phase: "scanning", Current: len(files)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// decodeFiles decodes files in parallel. Results are indexed like files.
func (in *Ingester) decodeFiles(ctx context.Context, files []string, progress chan<- Progress) ([]fileResult, error) {
	total := len(files)
	var processed atomic.Int64

	workCh := make(chan int, total)
	resultCh := make(chan fileResult, total)

	var wg sync.WaitGroup
	for range in.opts.Workers {
		wg.Go(func() {
			for i := range workCh {
				if ctx.Err() != nil {
					processed.Add(1)
					continue
				}
				docs, err := readDocuments(files[i])
				resultCh <- fileResult{index: i, docs: docs, err: err}
				processed.Add(1)
			}
		})
	}

	for i := range files {
		workCh <- i
	}
	close(workCh)

	// Progress reporter
	done := make(chan struct{})
	var reporter sync.WaitGroup
	if progress != nil {
		reporter.Go(func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					p := Progress{Phase: "decoding", Current: int(processed.Load()), Total: total}
					select {
					case progress <- p:
					case <-done:
						return
					}
				case <-done:
					return
				}
			}
		})
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]fileResult, total)
	for r := range resultCh {
		results[r.index] = r
	}

	close(done)
	reporter.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	send(progress, Progress{Phase: "decoding", Current: total, Total: total})
	return results, nil
}

// assemble merges decoded files in walk order.
func (in *Ingester) assemble(files []string, results []fileResult) *Result {
	res := &Result{}
	seenSongs := make(map[string]bool)
	seenArtists := make(map[string]bool)
	songArtists := make(map[string]bool)

	for i, r := range results {
		if r.err != nil {
			res.Stats.FilesSkipped++
			in.log.Warn().Err(r.err).Str("file", files[i]).Msg("skipping metadata file")
			continue
		}
		res.Stats.FilesProcessed++

		for _, doc := range r.docs {
			if !doc.valid() {
				res.Stats.RecordsSkipped++
				continue
			}

			if !seenSongs[doc.SongID] {
				seenSongs[doc.SongID] = true
				res.Songs = append(res.Songs, doc.song())
				songArtists[doc.ArtistID] = true
			}

			if !seenArtists[doc.ArtistID] {
				seenArtists[doc.ArtistID] = true
				res.Artists = append(res.Artists, doc.artist())
			}
		}
	}

	res.Stats.Songs = len(res.Songs)
	res.Stats.SongArtists = len(songArtists)
	res.Stats.Artists = len(res.Artists)

	in.log.Info().
		Int("songs", res.Stats.Songs).
		Int("artists", res.Stats.Artists).
		Int("files", res.Stats.FilesProcessed).
		Int("skipped", res.Stats.FilesSkipped).
		Msg("ingest complete")

	return res
}

func readDocuments(path string) ([]document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeDocuments(data)
}

func send(progress chan<- Progress, p Progress) {
	if progress != nil {
		progress <- p
	}
}
