package notify

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/xaenox/teams-notify/pkg/config"
	"go.uber.org/zap"
)

// Player plays a local notification cue by spawning an external player
// command. Play never reports failure to its caller; every problem is
// logged and swallowed so a broken sound setup cannot take down polling.
type Player struct {
	command []string
	timeout time.Duration
	logger  *zap.Logger
}

func NewPlayer(cfg config.NotificationConfig, logger *zap.Logger) *Player {
	return &Player{
		command: cfg.PlayerCommand,
		timeout: cfg.PlayerTimeout(),
		logger:  logger,
	}
}

// Play plays the sound file at path. The external player is killed if it
// runs past the configured timeout.
func (p *Player) Play(path string) {
	if _, err := os.Stat(path); err != nil {
		p.logger.Error("Notification sound file not found at: " + path)
		return
	}

	if len(p.command) == 0 {
		p.logger.Error("No notification player command configured",
			zap.String("path", path))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	args := append(append([]string{}, p.command[1:]...), path)
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	if err := cmd.Run(); err != nil {
		p.logger.Error("Failed to play notification sound",
			zap.Error(err),
			zap.String("path", path),
			zap.Strings("command", p.command))
		return
	}

	metrics.cuesPlayedCounter.Inc()
}
