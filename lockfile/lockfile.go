// Package lockfile implements objtrans.lock, a lock file that tracks MD5
// checksums of the field edits last written to each org. This enables
// incremental import: only new or changed edits are sent to the org.
//
// The lock file is stored alongside .objtrans.yaml as objtrans.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/objtrans/metadata"
)

// LockFileName is the default lock file name.
const LockFileName = "objtrans.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the objtrans.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // org -> field -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported version %d", path, lf.Version)
	}
	lf.path = path
	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}
	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}
	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}
	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}
	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Keys and content
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// OrgKey identifies an org by the host of its instance URL, so that
// "https://acme.my.salesforce.com/" and "https://ACME.my.salesforce.com"
// share entries.
func OrgKey(instanceURL string) string {
	u, err := url.Parse(instanceURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimRight(instanceURL, "/"))
	}
	return strings.ToLower(u.Host)
}

// EditContent builds the content string hashed for an edit. A property
// that is not carried differs from one carried as empty.
func EditContent(e metadata.FieldEdit) string {
	part := func(p *string) string {
		if p == nil {
			return "\x01"
		}
		return *p
	}
	return strings.Join([]string{part(e.Label), part(e.Description), part(e.RelationshipLabel)}, "\x00")
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// IsChanged reports whether the edit differs from the one last recorded
// for the org.
func (lf *LockFile) IsChanged(org string, e metadata.FieldEdit) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	old, ok := lf.Checksums[org][e.FullName]
	return !ok || old != Hash(EditContent(e))
}

// FilterEdits returns the edits that are new or changed, in order.
func (lf *LockFile) FilterEdits(org string, edits []metadata.FieldEdit) []metadata.FieldEdit {
	var out []metadata.FieldEdit
	for _, e := range edits {
		if lf.IsChanged(org, e) {
			out = append(out, e)
		}
	}
	return out
}

// Update records the checksum of an edit.
func (lf *LockFile) Update(org string, e metadata.FieldEdit) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[org] == nil {
		lf.Checksums[org] = make(map[string]string)
	}
	lf.Checksums[org][e.FullName] = Hash(EditContent(e))
}

// Record updates the checksums of the edits whose results succeeded.
// edits and results are matched by field name.
func (lf *LockFile) Record(org string, edits []metadata.FieldEdit, results []metadata.SaveResult) int {
	ok := make(map[string]bool, len(results))
	for _, r := range results {
		if r.Success {
			ok[r.FullName] = true
		}
	}
	n := 0
	for _, e := range edits {
		if ok[e.FullName] {
			lf.Update(org, e)
			n++
		}
	}
	return n
}

// Clean removes entries of fields no longer present in the current set.
func (lf *LockFile) Clean(org string, current []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[org]
	if existing == nil {
		return
	}
	valid := make(map[string]bool, len(current))
	for _, k := range current {
		valid[k] = true
	}
	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
}

// RemoveOrg removes all checksums of an org.
func (lf *LockFile) RemoveOrg(org string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Checksums, org)
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of orgs and total fields in the lock file.
func (lf *LockFile) Stats() (orgs, fields int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	orgs = len(lf.Checksums)
	for _, m := range lf.Checksums {
		fields += len(m)
	}
	return
}

// Orgs returns the sorted list of org keys.
func (lf *LockFile) Orgs() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	orgs := make([]string, 0, len(lf.Checksums))
	for o := range lf.Checksums {
		orgs = append(orgs, o)
	}
	sort.Strings(orgs)
	return orgs
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	orgs, fields := lf.Stats()
	if orgs == 0 {
		return "empty"
	}

	var parts []string
	for _, o := range lf.Orgs() {
		lf.mu.Lock()
		n := len(lf.Checksums[o])
		lf.mu.Unlock()
		parts = append(parts, fmt.Sprintf("%s: %d fields", o, n))
	}
	return fmt.Sprintf("%d orgs, %d fields (%s)", orgs, fields, strings.Join(parts, ", "))
}
