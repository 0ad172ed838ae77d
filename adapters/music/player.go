package music

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
)

const (
	DefaultDir     = "incredibles_audio"
	DefaultCommand = "ffplay -nodisp -loglevel quiet -loop 0"

	stopTimeout = 3 * time.Second
)

var trackExtensions = map[string]bool{".mp3": true, ".wav": true, ".ogg": true}

// Config configures the background music player
type Config struct {
	// Dir holds one sub-directory of tracks per mood
	Dir string
	// Command is the player invocation; the track path is appended. It is
	// expected to loop the track until killed.
	Command []string
}

// ExecPlayer plays one looping track per mood through an external player
// process. Switching mood kills the old process before starting the next.
type ExecPlayer struct {
	command []string
	tracks  map[entities.MoodLabel][]string
	pick    func(n int) int
	logger  *zap.Logger

	mu      sync.Mutex
	current entities.MoodLabel
	track   string
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ repositories.MusicPlayer = (*ExecPlayer)(nil)

// NewExecPlayer scans config.Dir for tracks of every label
func NewExecPlayer(config Config, labels []entities.MoodLabel, logger *zap.Logger) (*ExecPlayer, error) {
	command := config.Command
	if len(command) == 0 {
		command = strings.Fields(DefaultCommand)
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, fmt.Errorf("music player %q not found: %w", command[0], err)
	}

	dir := config.Dir
	if dir == "" {
		dir = DefaultDir
	}

	p := &ExecPlayer{
		command: command,
		tracks:  make(map[entities.MoodLabel][]string),
		pick:    rand.IntN,
		logger:  logger,
	}
	for _, label := range labels {
		files := discoverTracks(filepath.Join(dir, label.String()))
		if len(files) > 0 {
			p.tracks[label] = files
			logger.Info("Loaded music for mood", zap.String("mood", label.String()), zap.Int("tracks", len(files)))
		}
	}
	return p, nil
}

func discoverTracks(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && trackExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files
}

// Tracks returns the tracks known for mood
func (p *ExecPlayer) Tracks(mood entities.MoodLabel) []string {
	return append([]string(nil), p.tracks[mood]...)
}

// Play switches to a random track of mood. The same mood again is a no-op;
// a mood without tracks stops playback.
func (p *ExecPlayer) Play(_ context.Context, mood entities.MoodLabel) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if mood == p.current {
		return nil
	}

	p.stopLocked()
	p.current = mood

	files := p.tracks[mood]
	if len(files) == 0 {
		p.logger.Info("No music for mood", zap.String("mood", mood.String()))
		return nil
	}
	track := files[p.pick(len(files))]

	// playback outlives the dispatch call, so it gets its own context
	procCtx, cancel := context.WithCancel(context.Background())
	args := append(append([]string(nil), p.command[1:]...), track)
	cmd := exec.CommandContext(procCtx, p.command[0], args...)
	if err := cmd.Start(); err != nil {
		cancel()
		p.current = ""
		return fmt.Errorf("failed to start music player: %w", err)
	}

	done := make(chan struct{})
	go func() {
		err := cmd.Wait()
		close(done)
		if procCtx.Err() != nil {
			return
		}

		// exited on its own, so the same mood may start it again
		p.logger.Warn("Music player exited", zap.String("track", track), zap.Error(err))
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.done == done {
			cancel()
			p.cancel = nil
			p.done = nil
			p.current = ""
			p.track = ""
		}
	}()

	p.cancel = cancel
	p.done = done
	p.track = track
	p.logger.Info("Playing music",
		zap.String("mood", mood.String()),
		zap.String("track", filepath.Base(track)))
	return nil
}

// Stop kills the player process. Safe to call repeatedly.
func (p *ExecPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.stopLocked()
	p.current = ""
	return err
}

func (p *ExecPlayer) stopLocked() error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	p.cancel = nil

	var err error
	select {
	case <-p.done:
	case <-time.After(stopTimeout):
		err = errors.New("music player did not exit in time")
	}
	p.done = nil
	p.track = ""
	return err
}

// Current returns the mood being played, or "" when stopped
func (p *ExecPlayer) Current() entities.MoodLabel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Track returns the file being played, or ""
func (p *ExecPlayer) Track() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.track
}
