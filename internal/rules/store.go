package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var (
	ErrRuleNotFound = errors.New("rule not found")
	ErrDuplicateID  = errors.New("duplicate rule id")
)

// document is the on-disk layout of the rule file.
type document struct {
	Rules []Rule `yaml:"rules"`
}

// FileStore keeps rules in a YAML file. A missing file is an empty rule set.
type FileStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the rule file location.
func (s *FileStore) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// SetPath points the store at a different rule file.
func (s *FileStore) SetPath(path string) {
	s.mu.Lock()
	s.path = path
	s.mu.Unlock()
}

// Load reads all rules in file order.
func (s *FileStore) Load() ([]Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// CurrentRules returns the current rule snapshot. Read failures are logged
// and produce an empty snapshot.
func (s *FileStore) CurrentRules() []Rule {
	rs, err := s.Load()
	if err != nil {
		s.logger.Error("failed to load rules", "error", err)
		return nil
	}
	return rs
}

// Add appends a rule. An empty ID is replaced with a fresh UUID.
func (s *FileStore) Add(r Rule) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, err := s.load()
	if err != nil {
		return Rule{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	for _, existing := range rs {
		if existing.ID == r.ID {
			return Rule{}, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
	}
	rs = append(rs, r)
	if err := s.save(rs); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Remove deletes the rule with the given id.
func (s *FileStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, err := s.load()
	if err != nil {
		return err
	}
	out := rs[:0]
	found := false
	for _, r := range rs {
		if r.ID == id {
			found = true
			continue
		}
		out = append(out, r)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return s.save(out)
}

// SetEnabled toggles a rule on or off.
func (s *FileStore) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, err := s.load()
	if err != nil {
		return err
	}
	for i := range rs {
		if rs[i].ID == id {
			rs[i].Enabled = enabled
			return s.save(rs)
		}
	}
	return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// Save replaces the whole rule file.
func (s *FileStore) Save(rs []Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkUniqueIDs(rs); err != nil {
		return err
	}
	return s.save(rs)
}

func (s *FileStore) load() ([]Rule, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: failed to read: %w", s.path, err)
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: failed to parse yaml: %w", s.path, err)
	}
	if err := checkUniqueIDs(doc.Rules); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return doc.Rules, nil
}

func (s *FileStore) save(rs []Rule) error {
	if rs == nil {
		rs = []Rule{}
	}
	data, err := yaml.Marshal(document{Rules: rs})
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".rules-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp rules file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write rules: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write rules: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace rules file: %w", err)
	}
	return nil
}

func checkUniqueIDs(rs []Rule) error {
	seen := make(map[string]struct{}, len(rs))
	for i, r := range rs {
		if r.ID == "" {
			return fmt.Errorf("rules[%d]: id is required", i)
		}
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
