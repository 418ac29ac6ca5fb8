// Package state persists lint baselines in SQLite.
//
// A baseline is a snapshot of the findings present when it was recorded.
// Later lint runs suppress findings whose fingerprint appears in the latest
// snapshot, so only new problems are reported. Fingerprints ignore line
// numbers, which keeps a baseline valid while unrelated code moves around.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Finding is one diagnostic recorded in a baseline.
type Finding struct {
	Fingerprint string
	RuleID      string
	Path        string // slash separated, relative to the project root
	Line        int
	Message     string
}

// Snapshot describes a recorded baseline.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	RulesDir  string
	Findings  int
}

// Fingerprint identifies a finding by rule, file and the source text it
// covers. Surrounding whitespace in the text is ignored.
func Fingerprint(ruleID, path string, text []byte) string {
	h := sha256.New()
	h.Write([]byte(ruleID))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(trimSpace(text))
	return hex.EncodeToString(h.Sum(nil))
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// Baseline counts the recorded occurrences of each fingerprint.
type Baseline struct {
	Snapshot *Snapshot
	counts   map[string]int
}

// Len returns the number of recorded findings.
func (b *Baseline) Len() int {
	n := 0
	for _, c := range b.counts {
		n += c
	}
	return n
}

// Suppress reports whether a finding with the fingerprint is covered by the
// baseline, consuming one recorded occurrence. A nil baseline suppresses
// nothing. It is not safe for concurrent use.
func (b *Baseline) Suppress(fingerprint string) bool {
	if b == nil || b.counts[fingerprint] == 0 {
		return false
	}
	b.counts[fingerprint]--
	return true
}
