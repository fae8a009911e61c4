// Package manifest indexes published pages in a Badger database.
//
// Every successful publish records what was written and where; list,
// regen, and purge reporting read it back. The manifest is advisory:
// the web root remains the source of truth, and publishers treat
// manifest failures as log-worthy, never fatal.
package manifest

import (
	"bytes"
	"encoding/gob"
	"time"
)

// ManifestVersion is incremented when the record format changes.
const ManifestVersion = 1

// KeySeparator separates the URL path from its variant in manifest keys.
const KeySeparator = '\x00'

// Record describes one published page variant. The JSON tags shape the
// daemon's page-listing responses; storage itself is gob.
type Record struct {
	Path        string    `json:"path"`            // URL path, query already split off
	Query       string    `json:"query,omitempty"` // raw query string, may be empty
	Ajax        bool      `json:"ajax,omitempty"`
	Filename    string    `json:"filename"` // absolute path under the web root
	Size        int64     `json:"size"`     // rendered body size in bytes
	SHA256      string    `json:"sha256"`   // hex digest of the rendered body
	PublishedAt time.Time `json:"published_at"`
	BatchID     string    `json:"batch_id,omitempty"` // groups records written by one publish call
}

// Encode serializes the record to bytes using gob.
func (r *Record) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes into the record using gob.
func (r *Record) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(r)
}

// MakeKey creates a manifest key from a page identity.
// Format: <path>\x00<query>\x00<ajax flag>
//
// The double separator keeps variants unambiguous: a query ending in a
// marker byte can never collide with the ajax flag.
func MakeKey(path, query string, ajax bool) []byte {
	flag := byte('0')
	if ajax {
		flag = '1'
	}
	key := make([]byte, 0, len(path)+len(query)+3)
	key = append(key, path...)
	key = append(key, KeySeparator)
	key = append(key, query...)
	key = append(key, KeySeparator, flag)
	return key
}

// ParseKey extracts the page identity from a manifest key.
func ParseKey(key []byte) (path, query string, ajax bool) {
	first := bytes.IndexByte(key, KeySeparator)
	if first == -1 {
		return string(key), "", false
	}
	rest := key[first+1:]
	second := bytes.IndexByte(rest, KeySeparator)
	if second == -1 {
		return string(key[:first]), string(rest), false
	}
	flag := rest[second+1:]
	return string(key[:first]), string(rest[:second]), len(flag) == 1 && flag[0] == '1'
}

// MakeVariantPrefix returns the prefix matching every variant of one path.
func MakeVariantPrefix(path string) []byte {
	return []byte(path + string(KeySeparator))
}
