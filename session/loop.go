package session

import (
	"context"
	"time"
)

// DefaultFrame is the render period used when Run is given none (~60 fps).
const DefaultFrame = time.Second / 60

// Run drives s in real time until ctx is done.
//
// Every frame it advances the tick timer by the measured elapsed time and hands
// a Snapshot to r. Actions are applied as they arrive, between frames. A closed
// input channel stops input but not the loop. Run returns ctx.Err().
func Run(ctx context.Context, s *Session, input <-chan Action, r Renderer, frame time.Duration) error {
	if frame <= 0 {
		frame = DefaultFrame
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	last := time.Now()
	r.Render(s.Snapshot())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case a, ok := <-input:
			if !ok {
				input = nil
				continue
			}
			s.Handle(a)
		case now := <-ticker.C:
			s.Advance(now.Sub(last))
			last = now
			r.Render(s.Snapshot())
		}
	}
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Snapshot)

func (f RendererFunc) Render(s Snapshot) { f(s) }
