package skills

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// artifactHeader opens every saved library artifact. Everything after it is
// function definitions in commit order.
const artifactHeader = "// Skill library. Entries are appended by induction; never edit in place.\n"

// Library is the shared, versioned store of committed skills. It is
// single-writer: orchestration never overlaps two staging operations, so a
// plain mutex is enough to make that observable.
type Library struct {
	mu      sync.Mutex
	skills  []Skill
	names   map[string]struct{}
	version uint64
}

// Snapshot is a full structural copy of the library at one version. It is
// retained from staging until commit or rollback.
type Snapshot struct {
	skills  []Skill
	version uint64
}

// NewLibrary returns an empty library at version 0.
func NewLibrary() *Library {
	return &Library{names: map[string]struct{}{}}
}

// Load reads a library artifact from disk. A missing file is an empty
// library, matching the production loading path for fresh deployments.
func Load(path string) (*Library, error) {
	lib := NewLibrary()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return lib, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill library")
	}
	src := strings.TrimSpace(strings.TrimPrefix(string(data), artifactHeader))
	if src == "" {
		return lib, nil
	}
	parsed, err := ParseSource(src, "")
	if err != nil {
		return nil, errors.Wrap(err, "corrupt skill library artifact")
	}
	for _, s := range parsed {
		if err := lib.add(s); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// Save writes the artifact. Between snapshots the file only ever grows:
// mutation is append-only and rollback restores the pre-staging bytes.
func (l *Library) Save(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	b.WriteString(artifactHeader)
	for _, s := range l.skills {
		b.WriteString("\n")
		b.WriteString(s.Source)
		b.WriteString("\n")
	}
	return errors.Wrap(os.WriteFile(path, []byte(b.String()), 0o644), "failed to write skill library")
}

func (l *Library) add(s Skill) error {
	if _, exists := l.names[s.Name]; exists {
		return errors.Errorf("skill %q already exists", s.Name)
	}
	l.skills = append(l.skills, s)
	l.names[s.Name] = struct{}{}
	return nil
}

// Append parses a source blob and appends every function it defines,
// tagged with the originating task id. A name collision fails the whole
// blob; nothing is applied.
func (l *Library) Append(source, taskID string) ([]string, error) {
	parsed, err := ParseSource(source, taskID)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range parsed {
		if _, exists := l.names[s.Name]; exists {
			return nil, errors.Errorf("skill %q already exists", s.Name)
		}
	}
	names := make([]string, 0, len(parsed))
	for _, s := range parsed {
		l.skills = append(l.skills, s)
		l.names[s.Name] = struct{}{}
		names = append(names, s.Name)
	}
	return names, nil
}

// Snapshot returns a structural copy of the current state.
func (l *Library) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]Skill, len(l.skills))
	copy(cp, l.skills)
	return Snapshot{skills: cp, version: l.version}
}

// Restore reinstates a snapshot, discarding everything staged since.
func (l *Library) Restore(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.skills = make([]Skill, len(snap.skills))
	copy(l.skills, snap.skills)
	l.names = make(map[string]struct{}, len(l.skills))
	for _, s := range l.skills {
		l.names[s.Name] = struct{}{}
	}
	l.version = snap.version
}

// Commit advances the version, making the staged skills permanent.
func (l *Library) Commit() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.version++
	return l.version
}

// Version reports the monotonic commit counter.
func (l *Library) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

// Names returns the set of committed skill names.
func (l *Library) Names() map[string]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]struct{}, len(l.names))
	for name := range l.names {
		out[name] = struct{}{}
	}
	return out
}

// Skills returns the entries in commit order.
func (l *Library) Skills() []Skill {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Skill, len(l.skills))
	copy(out, l.skills)
	return out
}

// Len reports the number of committed skills.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.skills)
}

// Source concatenates all skill definitions in commit order. This is the
// single loading path for execution: staged skills become callable exactly
// the way committed ones are.
func (l *Library) Source() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	parts := make([]string, len(l.skills))
	for i, s := range l.skills {
		parts[i] = s.Source
	}
	return strings.Join(parts, "\n\n")
}

// Describe renders the action-space documentation for every skill:
// signature followed by the doc description (including its Examples section).
func (l *Library) Describe() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	for i, s := range l.skills {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n", s.Signature())
		desc := strings.TrimSpace(s.Description)
		if desc != "" {
			for _, line := range strings.Split(desc, "\n") {
				fmt.Fprintf(&b, "    %s\n", strings.TrimRight(line, " "))
			}
		}
	}
	return b.String()
}
