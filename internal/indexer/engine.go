// Package indexer builds and opens the per-corpus inverted indexes. A Builder
// is the only writer of an index and produces it in a private directory that
// is renamed into place on Commit; an Index is the read-only handle returned
// by Open and may be shared by any number of concurrent readers.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/music-search/pkg/errors"
)

// ManifestFileName marks a complete index directory.
const ManifestFileName = "manifest.json"

// Manifest describes one committed build.
type Manifest struct {
	Corpus        string    `json:"corpus"`
	BuildID       string    `json:"build_id"`
	DocCount      int       `json:"doc_count"`
	TermCount     int       `json:"term_count"`
	Skipped       int       `json:"skipped"`
	CreatedAt     time.Time `json:"created_at"`
	FormatVersion uint32    `json:"format_version"`
}

// Dir returns the directory holding the committed index of corpus.
func Dir(dataDir string, corpus document.Corpus) string {
	return filepath.Join(dataDir, corpus.String())
}

// Builder accumulates documents for one corpus. It is not safe for
// concurrent use.
type Builder struct {
	corpus   document.Corpus
	finalDir string
	tmpDir   string
	buildID  string
	mem      *index.MemoryIndex
	docs     *docstore.Store
	nextID   uint32
	skipped  int
	closed   bool
	logger   *slog.Logger
}

// NewBuilder starts a build of corpus under dataDir.
func NewBuilder(dataDir string, corpus document.Corpus) (*Builder, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, apperrors.NewIndexIOError("create", dataDir, err)
	}
	tmpDir, err := os.MkdirTemp(dataDir, "."+corpus.String()+"-build-")
	if err != nil {
		return nil, apperrors.NewIndexIOError("create", dataDir, err)
	}
	docs, err := docstore.Create(filepath.Join(tmpDir, docstore.FileName))
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, apperrors.NewIndexIOError("create", tmpDir, err)
	}
	buildID := uuid.NewString()
	b := &Builder{
		corpus:   corpus,
		finalDir: Dir(dataDir, corpus),
		tmpDir:   tmpDir,
		buildID:  buildID,
		mem:      index.NewMemoryIndex(),
		docs:     docs,
		logger: slog.Default().With(
			"component", "indexer",
			"corpus", corpus.String(),
			"build_id", buildID,
		),
	}
	b.logger.Info("index build started", "tmp_dir", tmpDir)
	return b, nil
}

// BuildID is the unique id of this build.
func (b *Builder) BuildID() string {
	return b.buildID
}

// AddDocument assigns the next document id to doc, indexes its fields and
// stores them verbatim.
func (b *Builder) AddDocument(doc document.Document) (uint32, error) {
	if b.closed {
		return 0, fmt.Errorf("%w: builder already closed", apperrors.ErrInternal)
	}
	if doc.Corpus() != b.corpus {
		return 0, fmt.Errorf("%w: %s document added to %s index", apperrors.ErrInvalidInput, doc.Corpus(), b.corpus)
	}
	id := b.nextID
	stored := doc.Stored()
	if err := b.mem.AddDocument(id, stored); err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
	}
	if err := b.docs.Put(id, stored); err != nil {
		return 0, apperrors.NewIndexIOError("write", b.docs.Path(), err)
	}
	b.nextID++
	return id, nil
}

// Skip records a source record left out of the index.
func (b *Builder) Skip() {
	b.skipped++
}

// DocCount is the number of documents added so far.
func (b *Builder) DocCount() int {
	return int(b.nextID)
}

// Commit writes the segment and manifest, syncs them and moves the build
// into place, replacing any previous index of the corpus. On failure the
// build directory is removed and the previous index is left untouched.
func (b *Builder) Commit() (Manifest, error) {
	if b.closed {
		return Manifest{}, fmt.Errorf("%w: builder already closed", apperrors.ErrInternal)
	}
	b.closed = true
	manifest, err := b.commit()
	if err != nil {
		if rmErr := os.RemoveAll(b.tmpDir); rmErr != nil {
			b.logger.Error("removing failed build directory", "error", rmErr)
		}
		return Manifest{}, err
	}
	b.logger.Info("index build committed",
		"dir", b.finalDir,
		"documents", manifest.DocCount,
		"terms", manifest.TermCount,
		"skipped", manifest.Skipped,
	)
	return manifest, nil
}

func (b *Builder) commit() (Manifest, error) {
	if err := b.docs.Close(); err != nil {
		return Manifest{}, apperrors.NewIndexIOError("write", b.docs.Path(), err)
	}

	segPath := filepath.Join(b.tmpDir, segment.FileName)
	if err := segment.Write(segPath, b.mem.Snapshot(), b.mem.DocCount()); err != nil {
		return Manifest{}, apperrors.NewIndexIOError("write", segPath, err)
	}

	manifest := Manifest{
		Corpus:        b.corpus.String(),
		BuildID:       b.buildID,
		DocCount:      b.mem.DocCount(),
		TermCount:     b.mem.Terms(),
		Skipped:       b.skipped,
		CreatedAt:     time.Now().UTC(),
		FormatVersion: segment.FormatVersion,
	}
	manifestPath := filepath.Join(b.tmpDir, ManifestFileName)
	if err := writeManifest(manifestPath, manifest); err != nil {
		return Manifest{}, apperrors.NewIndexIOError("write", manifestPath, err)
	}

	if err := swapDir(b.tmpDir, b.finalDir, b.buildID); err != nil {
		return Manifest{}, apperrors.NewIndexIOError("commit", b.finalDir, err)
	}
	return manifest, nil
}

// Abort discards the build.
func (b *Builder) Abort() error {
	if b.closed {
		return nil
	}
	b.closed = true
	closeErr := b.docs.Close()
	if err := os.RemoveAll(b.tmpDir); err != nil {
		return apperrors.NewIndexIOError("abort", b.tmpDir, err)
	}
	b.logger.Warn("index build aborted", "documents", b.nextID)
	if closeErr != nil {
		return apperrors.NewIndexIOError("abort", b.docs.Path(), closeErr)
	}
	return nil
}

func writeManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// swapDir moves src to dst. An existing dst is first moved aside and removed
// once src is in place; if the second rename fails it is restored.
func swapDir(src, dst, buildID string) error {
	old := ""
	if _, err := os.Stat(dst); err == nil {
		old = dst + ".old-" + buildID
		if err := os.Rename(dst, old); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		if old != "" {
			if restoreErr := os.Rename(old, dst); restoreErr != nil {
				return fmt.Errorf("%w (restoring previous index: %v)", err, restoreErr)
			}
		}
		return err
	}
	if old != "" {
		return os.RemoveAll(old)
	}
	return nil
}

// Index is an opened, read-only corpus index. Postings are held in memory;
// stored fields are read from the document table.
type Index struct {
	corpus   document.Corpus
	dir      string
	manifest Manifest
	mem      *index.MemoryIndex
	docs     *docstore.Store
}

// Open loads the committed index of corpus under dataDir. It fails with an
// IndexIOError when the directory has no valid manifest, the segment fails
// verification, or the parts disagree on the document count.
func Open(dataDir string, corpus document.Corpus) (*Index, error) {
	dir := Dir(dataDir, corpus)
	manifestPath := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, apperrors.NewIndexIOError("open", manifestPath, err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, apperrors.NewIndexIOError("open", manifestPath, err)
	}
	if manifest.Corpus != corpus.String() {
		return nil, apperrors.NewIndexIOError("open", manifestPath,
			fmt.Errorf("manifest is for corpus %q", manifest.Corpus))
	}
	if manifest.FormatVersion != segment.FormatVersion {
		return nil, apperrors.NewIndexIOError("open", manifestPath,
			fmt.Errorf("unsupported format version %d", manifest.FormatVersion))
	}

	segPath := filepath.Join(dir, segment.FileName)
	reader, err := segment.OpenReader(segPath)
	if err != nil {
		return nil, apperrors.NewIndexIOError("open", segPath, err)
	}
	if int(reader.DocCount()) != manifest.DocCount {
		return nil, apperrors.NewIndexIOError("open", segPath,
			fmt.Errorf("segment has %d documents, manifest says %d", reader.DocCount(), manifest.DocCount))
	}
	entries, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewIndexIOError("open", segPath, err)
	}

	docsPath := filepath.Join(dir, docstore.FileName)
	docs, err := docstore.Open(docsPath)
	if err != nil {
		return nil, apperrors.NewIndexIOError("open", docsPath, err)
	}
	if docs.Count() != manifest.DocCount {
		docs.Close()
		return nil, apperrors.NewIndexIOError("open", docsPath,
			fmt.Errorf("document table has %d documents, manifest says %d", docs.Count(), manifest.DocCount))
	}

	slog.Default().With("component", "indexer").Info("index opened",
		"corpus", corpus.String(),
		"build_id", manifest.BuildID,
		"documents", manifest.DocCount,
		"terms", reader.Terms(),
	)
	return &Index{
		corpus:   corpus,
		dir:      dir,
		manifest: manifest,
		mem:      index.Load(entries, manifest.DocCount),
		docs:     docs,
	}, nil
}

func (ix *Index) Corpus() document.Corpus {
	return ix.corpus
}

func (ix *Index) Manifest() Manifest {
	return ix.manifest
}

// TotalDocs is the number of documents in the corpus.
func (ix *Index) TotalDocs() int {
	return ix.manifest.DocCount
}

// Postings returns the postings of an already normalized term in field.
func (ix *Index) Postings(field document.Field, term string) index.PostingList {
	return ix.mem.Postings(field, term)
}

// DocFreq is the number of documents containing term in field.
func (ix *Index) DocFreq(field document.Field, term string) int {
	return ix.mem.DocFreq(field, term)
}

// Document returns the stored fields of id.
func (ix *Index) Document(id uint32) (document.Stored, error) {
	if int64(id) >= int64(ix.manifest.DocCount) {
		return nil, fmt.Errorf("%w: id %d in %s", apperrors.ErrDocumentNotFound, id, ix.corpus)
	}
	stored, err := ix.docs.Get(id)
	if err != nil {
		if errors.Is(err, apperrors.ErrDocumentNotFound) {
			return nil, err
		}
		return nil, apperrors.NewIndexIOError("read", ix.docs.Path(), err)
	}
	return stored, nil
}

// Ping reports whether the document table is still readable.
func (ix *Index) Ping() error {
	if ix.manifest.DocCount == 0 {
		return nil
	}
	_, err := ix.Document(0)
	return err
}

func (ix *Index) Close() error {
	return ix.docs.Close()
}
