// Package messagestore implements the inbox/done/dead filesystem layout
// that backs domain.MessageStore.
package messagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runoshun/decree/internal/domain"
)

// messageExt is the extension used for every inbox/done/dead message file.
const messageExt = ".md"

// Store implements domain.MessageStore over <runtime-dir>/inbox and
// <runtime-dir>/cron. Every write is temp-file + atomic rename, matching
// the teacher's filestore.writeAtomic pattern.
type Store struct {
	runtimeDir string
}

// New returns a Store rooted at runtimeDir (decree's ".decree" directory).
func New(runtimeDir string) *Store {
	return &Store{runtimeDir: runtimeDir}
}

var _ domain.MessageStore = (*Store)(nil)

// ListInbox returns pending message paths in filename order.
func (s *Store) ListInbox() ([]string, error) {
	return listFiles(domain.InboxDir(s.runtimeDir), messageExt)
}

// ListCron returns cron entry file paths in filename order.
func (s *Store) ListCron() ([]string, error) {
	return listFiles(domain.CronDir(s.runtimeDir), "")
}

func listFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if ext != "" && !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Read loads and parses a message from its path.
func (s *Store) Read(path string) (*domain.Message, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from ListInbox or a resolved message id
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("read message %s: %w", path, err)
	}
	msg, err := domain.ParseMessage(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse message %s: %w", path, err)
	}
	msg.SourcePath = path
	return msg, nil
}

// Rewrite atomically rewrites a message's header in place, body unchanged.
func (s *Store) Rewrite(msg *domain.Message) error {
	if msg.SourcePath == "" {
		return fmt.Errorf("rewrite message %s: no source path set", msg.ID())
	}
	content, err := msg.Serialize()
	if err != nil {
		return fmt.Errorf("serialize message %s: %w", msg.ID(), err)
	}
	return writeAtomic(msg.SourcePath, []byte(content), 0o644)
}

// MoveToDone moves a message's source file to inbox/done/.
func (s *Store) MoveToDone(msg *domain.Message) error {
	return s.moveTo(msg, domain.InboxDoneDir(s.runtimeDir))
}

// MoveToDead moves a message's source file to inbox/dead/, recording why.
func (s *Store) MoveToDead(msg *domain.Message, reason string) error {
	if msg.Extra == nil {
		msg.Extra = map[string]string{}
	}
	msg.Extra["dead_reason"] = reason
	msg.Extra["dead_at"] = time.Now().UTC().Format(time.RFC3339)
	if err := s.Rewrite(msg); err != nil {
		return err
	}
	return s.moveTo(msg, domain.InboxDeadDir(s.runtimeDir))
}

func (s *Store) moveTo(msg *domain.Message, destDir string) error {
	if msg.SourcePath == "" {
		return fmt.Errorf("move message %s: no source path set", msg.ID())
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}
	dest := filepath.Join(destDir, filepath.Base(msg.SourcePath))
	if err := os.Rename(msg.SourcePath, dest); err != nil {
		return fmt.Errorf("move message %s: %w", msg.ID(), err)
	}
	msg.SourcePath = dest
	return nil
}

// Enqueue writes a brand-new message file into the inbox.
func (s *Store) Enqueue(msg *domain.Message) error {
	dir := domain.InboxDir(s.runtimeDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create inbox dir: %w", err)
	}
	content, err := msg.Serialize()
	if err != nil {
		return fmt.Errorf("serialize message %s: %w", msg.ID(), err)
	}
	path := filepath.Join(dir, msg.ID()+messageExt)
	if err := writeAtomic(path, []byte(content), 0o644); err != nil {
		return err
	}
	msg.SourcePath = path
	return nil
}

// cronHeader is the wire shape of a cron entry's structured header.
type cronHeader struct {
	Extra    map[string]string `yaml:",inline"`
	Schedule string            `yaml:"schedule"`
	Routine  string            `yaml:"routine,omitempty"`
	TZ       string            `yaml:"tz,omitempty"`
}

// ReadCron loads a cron entry from its path.
func (s *Store) ReadCron(path string) (*domain.CronEntry, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path comes from ListCron
	if err != nil {
		return nil, fmt.Errorf("read cron entry %s: %w", path, err)
	}

	msg, err := domain.ParseMessage(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse cron entry %s: %w", path, err)
	}

	// domain.ParseMessage doesn't special-case schedule/tz, so its inline
	// Extra map captured them along with every other non-reserved header
	// field; read them from a second parse of the header block into
	// cronHeader, then strip them from Extra below.
	raw, err := rawHeader(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse cron entry %s: %w", path, err)
	}

	if raw.Schedule == "" {
		return nil, fmt.Errorf("cron entry %s: missing schedule", path)
	}
	schedule, err := domain.ParseSchedule(raw.Schedule)
	if err != nil {
		return nil, fmt.Errorf("cron entry %s: %w", path, err)
	}

	delete(msg.Extra, "schedule")
	delete(msg.Extra, "tz")
	entry := &domain.CronEntry{
		Path:     path,
		Schedule: schedule,
		Routine:  msg.Routine,
		Extra:    msg.Extra,
		Body:     msg.Body,
	}
	if raw.TZ != "" {
		loc, err := time.LoadLocation(raw.TZ)
		if err != nil {
			return nil, fmt.Errorf("cron entry %s: invalid tz %q: %w", path, raw.TZ, err)
		}
		entry.TZ = loc
	}
	return entry, nil
}

func rawHeader(content string) (cronHeader, error) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return cronHeader{}, nil
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return cronHeader{}, fmt.Errorf("missing closing header delimiter")
	}
	var h cronHeader
	headerText := strings.Join(lines[1:end], "\n")
	if strings.TrimSpace(headerText) != "" {
		if err := yaml.Unmarshal([]byte(headerText), &h); err != nil {
			return cronHeader{}, err
		}
	}
	return h, nil
}

func writeAtomic(path string, content []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, perm); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
