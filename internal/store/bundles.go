package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/filebundler/internal/types"
	"github.com/temirov/filebundler/internal/utils"
)

var (
	// ErrInvalidBundleName is returned for names outside ^[a-z0-9-]+$.
	ErrInvalidBundleName = errors.New("bundle name must be lowercase alphanumeric and may include hyphens")
	// ErrBundleNotFound is returned when an operation names a bundle that does not exist.
	ErrBundleNotFound = errors.New("bundle not found")

	bundleNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

const (
	errorBundleNameFormat     = "%w: %q"
	errorBundleNotFoundFormat = "%w: %s"

	warningCorruptBundlesFormat = "stored bundles could not be parsed and were ignored: %v"
	warningCorruptBundleFormat  = "stored bundle #%d could not be parsed and was ignored: %v"
	warningPrunedMemberFormat   = "removed from bundle %q because the file was not found"
)

// FileReference is one bundle member, stored as a POSIX path relative to the project root.
type FileReference struct {
	Path string `json:"path"`
}

// Metadata carries the persisted timestamps of a bundle.
type Metadata struct {
	CreatedAt      time.Time  `json:"createdTimestamp"`
	LastExportedAt *time.Time `json:"lastExportedTimestamp,omitempty"`
}

// Bundle is a named, ordered collection of project files.
type Bundle struct {
	Name      string          `json:"name"`
	FileItems []FileReference `json:"fileItems"`
	Metadata  Metadata        `json:"metadata"`
}

// RelativePaths returns the member paths in bundle order.
func (bundle Bundle) RelativePaths() []string {
	relativePaths := make([]string, 0, len(bundle.FileItems))
	for _, fileReference := range bundle.FileItems {
		relativePaths = append(relativePaths, fileReference.Path)
	}
	return relativePaths
}

// BundleStatus holds figures derived from the files on disk. It is never persisted.
type BundleStatus struct {
	Files        int
	MissingFiles int
	LastModified time.Time
	// IsStale is set when the bundle was exported and a member changed afterwards.
	IsStale bool
}

// BundleStoreOption customises a BundleStore.
type BundleStoreOption func(*BundleStore)

// WithClock replaces the time source used for bundle timestamps.
func WithClock(now func() time.Time) BundleStoreOption {
	return func(bundleStore *BundleStore) {
		bundleStore.now = now
	}
}

// BundleStore owns bundles.json for one project. Every mutation is persisted before it returns.
type BundleStore struct {
	metadataDirectory string
	projectRoot       string
	logger            *zap.Logger
	now               func() time.Time
	bundles           []*Bundle
}

// ValidateBundleName reports ErrInvalidBundleName for names outside ^[a-z0-9-]+$.
func ValidateBundleName(name string) error {
	if !bundleNamePattern.MatchString(name) {
		return fmt.Errorf(errorBundleNameFormat, ErrInvalidBundleName, name)
	}
	return nil
}

// OpenBundleStore loads every stored bundle and prunes members whose file no
// longer exists. Pruning at load is not persisted until the next mutation.
func OpenBundleStore(metadataDirectory string, projectRoot string, logger *zap.Logger, options ...BundleStoreOption) (*BundleStore, []types.Warning, error) {
	bundleStore := &BundleStore{
		metadataDirectory: metadataDirectory,
		projectRoot:       projectRoot,
		logger:            utils.LoggerOrNop(logger),
		now:               time.Now,
	}
	for _, option := range options {
		option(bundleStore)
	}

	recordPath := bundleStore.Path()
	content, readError := os.ReadFile(recordPath)
	if errors.Is(readError, fs.ErrNotExist) {
		return bundleStore, nil, nil
	}
	if readError != nil {
		return nil, nil, fmt.Errorf(errorReadRecordFormat, recordPath, readError)
	}

	var rawBundles []json.RawMessage
	if decodeError := json.Unmarshal(content, &rawBundles); decodeError != nil {
		return bundleStore, []types.Warning{types.NewWarning(types.WarningCorruptRecord, recordPath, warningCorruptBundlesFormat, decodeError)}, nil
	}
	var warnings []types.Warning
	for rawIndex, rawBundle := range rawBundles {
		var bundle Bundle
		if decodeError := json.Unmarshal(rawBundle, &bundle); decodeError != nil || bundle.Name == "" {
			if decodeError == nil {
				decodeError = ErrInvalidBundleName
			}
			warnings = append(warnings, types.NewWarning(types.WarningCorruptRecord, recordPath, warningCorruptBundleFormat, rawIndex, decodeError))
			continue
		}
		bundleStore.remove(bundle.Name)
		bundleStore.bundles = append(bundleStore.bundles, &bundle)
	}
	warnings = append(warnings, bundleStore.prune()...)
	bundleStore.logger.Debug("bundles loaded", zap.String("path", recordPath), zap.Int("count", len(bundleStore.bundles)))
	return bundleStore, warnings, nil
}

// Path returns the location of bundles.json.
func (bundleStore *BundleStore) Path() string {
	return filepath.Join(bundleStore.metadataDirectory, utils.BundlesFileName)
}

// Save stores relativePaths under name, replacing any bundle with that name.
// The returned warnings list members pruned from any bundle before persisting.
// A failed write leaves the stored bundles unchanged.
func (bundleStore *BundleStore) Save(name string, relativePaths []string) (*Bundle, []types.Warning, error) {
	if validationError := ValidateBundleName(name); validationError != nil {
		return nil, nil, validationError
	}
	bundle := &Bundle{Name: name, FileItems: []FileReference{}, Metadata: Metadata{CreatedAt: bundleStore.now()}}
	var normalizedPaths []string
	for _, relativePath := range relativePaths {
		if normalizedPath := utils.NormalizeRelativePath(relativePath); normalizedPath != "" {
			normalizedPaths = append(normalizedPaths, normalizedPath)
		}
	}
	for _, normalizedPath := range utils.DeduplicatePatterns(normalizedPaths) {
		bundle.FileItems = append(bundle.FileItems, FileReference{Path: normalizedPath})
	}

	warnings, commitError := bundleStore.commit(func() {
		bundleStore.remove(name)
		bundleStore.bundles = append(bundleStore.bundles, bundle)
	})
	if commitError != nil {
		return nil, nil, commitError
	}
	saved := cloneBundle(bundle)
	return &saved, warnings, nil
}

// Delete removes the named bundle. The returned warnings list members pruned
// from the remaining bundles.
func (bundleStore *BundleStore) Delete(name string) ([]types.Warning, error) {
	if _, found := bundleStore.find(name); !found {
		return nil, fmt.Errorf(errorBundleNotFoundFormat, ErrBundleNotFound, name)
	}
	return bundleStore.commit(func() {
		bundleStore.remove(name)
	})
}

// Rename changes the name of a bundle. A bundle already holding newName is replaced.
func (bundleStore *BundleStore) Rename(oldName string, newName string) ([]types.Warning, error) {
	bundle, found := bundleStore.find(oldName)
	if !found {
		return nil, fmt.Errorf(errorBundleNotFoundFormat, ErrBundleNotFound, oldName)
	}
	if validationError := ValidateBundleName(newName); validationError != nil {
		return nil, validationError
	}
	return bundleStore.commit(func() {
		if oldName != newName {
			bundleStore.remove(newName)
			bundle.Name = newName
		}
	})
}

// MarkExported records the current time as the last export of the named bundle.
func (bundleStore *BundleStore) MarkExported(name string) ([]types.Warning, error) {
	bundle, found := bundleStore.find(name)
	if !found {
		return nil, fmt.Errorf(errorBundleNotFoundFormat, ErrBundleNotFound, name)
	}
	exportedAt := bundleStore.now()
	return bundleStore.commit(func() {
		bundle.Metadata.LastExportedAt = &exportedAt
	})
}

// commit applies change, prunes missing members and persists. When the write
// fails the in-memory bundles are restored to their state before change.
func (bundleStore *BundleStore) commit(change func()) ([]types.Warning, error) {
	snapshot := make([]*Bundle, 0, len(bundleStore.bundles))
	for _, bundle := range bundleStore.bundles {
		cloned := cloneBundle(bundle)
		snapshot = append(snapshot, &cloned)
	}
	change()
	warnings := bundleStore.prune()
	if persistError := bundleStore.persist(); persistError != nil {
		bundleStore.bundles = snapshot
		bundleStore.logger.Warn("bundles not saved; changes discarded", zap.String("path", bundleStore.Path()), zap.Error(persistError))
		return nil, persistError
	}
	return warnings, nil
}

// Get returns a copy of the named bundle.
func (bundleStore *BundleStore) Get(name string) (Bundle, bool) {
	bundle, found := bundleStore.find(name)
	if !found {
		return Bundle{}, false
	}
	return cloneBundle(bundle), true
}

// All returns copies of every bundle in storage order.
func (bundleStore *BundleStore) All() []Bundle {
	bundles := make([]Bundle, 0, len(bundleStore.bundles))
	for _, bundle := range bundleStore.bundles {
		bundles = append(bundles, cloneBundle(bundle))
	}
	return bundles
}

// Status derives the last modification time and staleness of bundle from the
// files on disk. It never changes stored timestamps.
func (bundleStore *BundleStore) Status(bundle Bundle) BundleStatus {
	var status BundleStatus
	for _, fileReference := range bundle.FileItems {
		fileInfo, statError := os.Stat(bundleStore.absolutePath(fileReference.Path))
		if statError != nil {
			status.MissingFiles++
			continue
		}
		status.Files++
		if fileInfo.ModTime().After(status.LastModified) {
			status.LastModified = fileInfo.ModTime()
		}
	}
	lastExportedAt := bundle.Metadata.LastExportedAt
	status.IsStale = lastExportedAt != nil && status.LastModified.After(*lastExportedAt)
	return status
}

// AbsolutePaths resolves the members of bundle against the project root.
func (bundleStore *BundleStore) AbsolutePaths(bundle Bundle) []string {
	absolutePaths := make([]string, 0, len(bundle.FileItems))
	for _, fileReference := range bundle.FileItems {
		absolutePaths = append(absolutePaths, bundleStore.absolutePath(fileReference.Path))
	}
	return absolutePaths
}

func (bundleStore *BundleStore) absolutePath(relativePath string) string {
	return filepath.Join(bundleStore.projectRoot, filepath.FromSlash(relativePath))
}

func (bundleStore *BundleStore) find(name string) (*Bundle, bool) {
	for _, bundle := range bundleStore.bundles {
		if bundle.Name == name {
			return bundle, true
		}
	}
	return nil, false
}

func (bundleStore *BundleStore) remove(name string) {
	kept := bundleStore.bundles[:0]
	for _, bundle := range bundleStore.bundles {
		if bundle.Name != name {
			kept = append(kept, bundle)
		}
	}
	bundleStore.bundles = kept
}

// prune drops members whose file no longer exists, reporting each removal.
func (bundleStore *BundleStore) prune() []types.Warning {
	var warnings []types.Warning
	for _, bundle := range bundleStore.bundles {
		kept := make([]FileReference, 0, len(bundle.FileItems))
		for _, fileReference := range bundle.FileItems {
			_, statError := os.Stat(bundleStore.absolutePath(fileReference.Path))
			if errors.Is(statError, fs.ErrNotExist) {
				warnings = append(warnings, types.NewWarning(types.WarningMissingFile, fileReference.Path, warningPrunedMemberFormat, bundle.Name))
				continue
			}
			kept = append(kept, fileReference)
		}
		bundle.FileItems = kept
	}
	return warnings
}

func (bundleStore *BundleStore) persist() error {
	records := make([]*Bundle, 0, len(bundleStore.bundles))
	records = append(records, bundleStore.bundles...)
	if writeError := writeRecord(bundleStore.metadataDirectory, bundleStore.Path(), records); writeError != nil {
		return writeError
	}
	bundleStore.logger.Info("bundles saved", zap.String("path", bundleStore.Path()), zap.Int("count", len(records)))
	return nil
}

func cloneBundle(bundle *Bundle) Bundle {
	cloned := *bundle
	cloned.FileItems = append([]FileReference(nil), bundle.FileItems...)
	if bundle.Metadata.LastExportedAt != nil {
		exportedAt := *bundle.Metadata.LastExportedAt
		cloned.Metadata.LastExportedAt = &exportedAt
	}
	return cloned
}
