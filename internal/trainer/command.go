package trainer

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/specialistvlad/detprep/internal/ctxlog"
)

// CommandTrainer launches the framework's command-line entrypoint, e.g.
// `yolo detect train data=... epochs=...`.
type CommandTrainer struct {
	Bin  string
	Task []string // arguments placed before the job's key=value pairs
}

// NewCommandTrainer returns a trainer for the given executable. With no task
// arguments it uses the detection training task.
func NewCommandTrainer(bin string, task ...string) *CommandTrainer {
	if len(task) == 0 {
		task = []string{"detect", "train"}
	}
	return &CommandTrainer{Bin: bin, Task: task}
}

// Train runs the job to completion, streaming the process output into the
// logger line by line.
func (c *CommandTrainer) Train(ctx context.Context, job Job) error {
	logger := ctxlog.FromContext(ctx).With("trainer", c.Bin)

	args := append(append([]string(nil), c.Task...), job.Args()...)
	logger.Info("Launching training process.", "args", args)

	stdout := &lineLogger{logger: logger, stream: "stdout"}
	stderr := &lineLogger{logger: logger, stream: "stderr"}

	cmd := exec.CommandContext(ctx, c.Bin, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err != nil {
		return &Error{Device: job.Device, Err: err}
	}
	return nil
}

// lineLogger is an io.Writer that emits one log record per complete line.
type lineLogger struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	logger *slog.Logger
	stream string
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		i := bytes.IndexByte(l.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(l.buf.Next(i+1), "\r\n"))
		l.emit(line)
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(l.buf.String())
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line string) {
	if line == "" {
		return
	}
	l.logger.Info(line, "stream", l.stream)
}
