package dezoom

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// EnvExecutable overrides the downloader executable.
const EnvExecutable = "DEZOOMIFY_RS"

// DefaultExecutable is looked up on PATH when nothing else is configured.
const DefaultExecutable = "dezoomify-rs"

// DefaultReferer is sent with every tile request.
const DefaultReferer = "https://www.dpm.org.cn"

// Options configures a Runner.
type Options struct {
	Executable string
	Referer    string
	Retries    int
	Largest    bool
}

// Runner invokes the tile downloader.
type Runner struct {
	opts Options
}

// NewRunner creates a Runner. Empty options fall back to the defaults.
func NewRunner(opts Options) *Runner {
	if env := strings.TrimSpace(os.Getenv(EnvExecutable)); env != "" {
		opts.Executable = env
	}
	if opts.Executable == "" {
		opts.Executable = DefaultExecutable
	}
	if opts.Referer == "" {
		opts.Referer = DefaultReferer
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Runner{opts: opts}
}

// Executable returns the resolved executable.
func (r *Runner) Executable() string {
	return r.opts.Executable
}

// Args returns the command line arguments for one descriptor.
func (r *Runner) Args(descriptorPath, outputPath string) []string {
	args := []string{
		"--dezoomer", "deepzoom",
		descriptorPath,
		"--header", "Referer: " + r.opts.Referer,
		"--retries", strconv.Itoa(r.opts.Retries),
	}
	if r.opts.Largest {
		args = append(args, "--largest")
	}
	return append(args, outputPath)
}

// Run downloads the image described by descriptorPath into outputPath.
// Every line the process writes to stdout or stderr is passed to onLine,
// which may be nil. Cancelling ctx kills the process.
func (r *Runner) Run(ctx context.Context, descriptorPath, outputPath string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, r.opts.Executable, r.Args(descriptorPath, outputPath)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", r.opts.Executable, err)
	}

	lines := make(chan string)
	var g errgroup.Group
	g.Go(func() error { return pump(stdout, lines) })
	g.Go(func() error { return pump(stderr, lines) })

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(lines)
	}()
	for line := range lines {
		if onLine != nil {
			onLine(line)
		}
	}
	pumpErr := <-done

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w", r.opts.Executable, descriptorPath, err)
	}
	return pumpErr
}

func pump(r io.Reader, lines chan<- string) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines <- strings.TrimRight(scanner.Text(), "\r")
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}
