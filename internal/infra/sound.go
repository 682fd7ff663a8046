package infra

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mosmello93/focus-timer/internal/domain"
)

// bellPatterns is the number of terminal bells rung per cue.
var bellPatterns = map[domain.Cue]int{
	domain.CueStart:    1,
	domain.CueEnd:      2,
	domain.CueWarning:  2,
	domain.CueCritical: 3,
}

// BellPlayer implements domain.SoundPlayer with the terminal bell.
type BellPlayer struct {
	mu  sync.Mutex
	out io.Writer
	gap time.Duration
}

// NewBellPlayer creates a player that rings on stderr.
func NewBellPlayer() *BellPlayer {
	return NewBellPlayerWithWriter(os.Stderr, 150*time.Millisecond)
}

// NewBellPlayerWithWriter creates a player writing to w (for testing).
func NewBellPlayerWithWriter(w io.Writer, gap time.Duration) *BellPlayer {
	return &BellPlayer{out: w, gap: gap}
}

// Play rings the pattern for cue in the background.
func (p *BellPlayer) Play(cue domain.Cue) {
	n := bellPatterns[cue]
	if n == 0 {
		return
	}
	go p.ring(n)
}

func (p *BellPlayer) ring(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n; i++ {
		if i > 0 {
			time.Sleep(p.gap)
		}
		_, _ = p.out.Write([]byte{'\a'})
	}
}

var _ domain.SoundPlayer = (*BellPlayer)(nil)
