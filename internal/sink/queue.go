package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/agentic-research/lina/internal/engine"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
)

// ErrQueueEmpty is returned by Oldest when no pending entry exists.
var ErrQueueEmpty = errors.New("queue is empty")

const (
	pendingExt = ".json"
	failedExt  = ".failed"
	tmpPrefix  = ".tmp-"
)

// Entry is one pending payload file.
type Entry struct {
	Name string
	Body []byte
}

// Queue is a durable FIFO of payload files on a billy filesystem. File
// names start with a zero-padded Unix-nanosecond stamp so name order is
// arrival order.
type Queue struct {
	fs     billy.Filesystem
	logger *slog.Logger
	now    func() time.Time
}

func NewQueue(fs billy.Filesystem, logger *slog.Logger) *Queue {
	return &Queue{fs: fs, logger: logger, now: time.Now}
}

// Enqueue writes p as a new pending entry and returns its name. The file
// is written under a temporary name and renamed so readers never see a
// partial payload.
func (q *Queue) Enqueue(p *engine.Payload) (string, error) {
	body, err := p.Marshal()
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return q.EnqueueRaw(body)
}

// EnqueueRaw writes an already encoded payload.
func (q *Queue) EnqueueRaw(body []byte) (string, error) {
	name := fmt.Sprintf("%020d-%s%s", q.now().UnixNano(), uuid.NewString(), pendingExt)
	tmp := tmpPrefix + name
	if err := util.WriteFile(q.fs, tmp, body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := q.fs.Rename(tmp, name); err != nil {
		_ = q.fs.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", tmp, err)
	}
	return name, nil
}

// Push implements Sink. Write failures are logged.
func (q *Queue) Push(_ context.Context, p *engine.Payload) {
	name, err := q.Enqueue(p)
	if err != nil {
		q.logger.Error("save payload", "error", err)
		return
	}
	q.logger.Debug("payload queued", "file", name, "package", p.PackageName)
}

func (q *Queue) pending() ([]string, error) {
	infos, err := q.fs.ReadDir(".")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list queue: %w", err)
	}
	var names []string
	for _, fi := range infos {
		name := fi.Name()
		if fi.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, pendingExt) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Oldest returns the earliest pending entry, or ErrQueueEmpty.
func (q *Queue) Oldest() (Entry, error) {
	names, err := q.pending()
	if err != nil {
		return Entry{}, err
	}
	if len(names) == 0 {
		return Entry{}, ErrQueueEmpty
	}
	body, err := util.ReadFile(q.fs, names[0])
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", names[0], err)
	}
	return Entry{Name: names[0], Body: body}, nil
}

// Remove deletes a delivered entry.
func (q *Queue) Remove(name string) error {
	if err := q.fs.Remove(name); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// MarkFailed parks a rejected entry under name+".failed" so it is kept
// for inspection but never retried.
func (q *Queue) MarkFailed(name string) error {
	if err := q.fs.Rename(name, name+failedExt); err != nil {
		return fmt.Errorf("mark failed %s: %w", name, err)
	}
	return nil
}

// Len returns the number of pending entries.
func (q *Queue) Len() (int, error) {
	names, err := q.pending()
	return len(names), err
}

// Failed lists parked entries.
func (q *Queue) Failed() ([]string, error) {
	infos, err := q.fs.ReadDir(".")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list queue: %w", err)
	}
	var names []string
	for _, fi := range infos {
		if strings.HasSuffix(fi.Name(), failedExt) {
			names = append(names, fi.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

var _ Sink = (*Queue)(nil)
