package invalidate

import (
	"context"
	"sync"
)

// Sink performs the expensive post-write side effects. Both calls are
// fire-and-forget from the engine's point of view: failures are logged by the
// implementation and never fail an upsert.
type Sink interface {
	// Invalidate purges cached state for one entity.
	Invalidate(ctx context.Context, id string)
	// Rebuild recomputes derived story state (chapter links, counters).
	// Only story ids are passed here.
	Rebuild(ctx context.Context, id string)
}

// Session collects the entities touched during one unit of work so the side
// effects run once per entity instead of once per write. A single-item request
// uses a session the same way a bulk request does; it just flushes after one
// item.
//
// A session belongs to one request goroutine and is not safe for concurrent
// marking; the mutex only guards against a double flush.
type Session struct {
	mu      sync.Mutex
	flushed bool

	chapterSet map[string]struct{}
	storySet   map[string]struct{}
	chapters   []string // insertion order
	stories    []string

	after []func(context.Context) // runs after the flush pass
}

func NewSession() *Session {
	return &Session{
		chapterSet: make(map[string]struct{}),
		storySet:   make(map[string]struct{}),
	}
}

// MarkChapter records a dirty chapter id. Repeated marks collapse.
func (s *Session) MarkChapter(id string) {
	if _, ok := s.chapterSet[id]; ok {
		return
	}
	s.chapterSet[id] = struct{}{}
	s.chapters = append(s.chapters, id)
}

// MarkStory records a dirty story id. Repeated marks collapse.
func (s *Session) MarkStory(id string) {
	if _, ok := s.storySet[id]; ok {
		return
	}
	s.storySet[id] = struct{}{}
	s.stories = append(s.stories, id)
}

// Defer schedules fn to run after the flush pass, once all invalidations and
// rebuilds for the batch have happened.
func (s *Session) Defer(fn func(context.Context)) {
	s.after = append(s.after, fn)
}

// Flush runs the side effects: every dirty chapter is invalidated first, then
// every dirty story is invalidated and rebuilt (story rebuild reads chapter
// state, so chapters must already be clean). Deferred functions run last.
// A second Flush on the same session is a no-op.
func (s *Session) Flush(ctx context.Context, sink Sink) {
	s.mu.Lock()
	if s.flushed {
		s.mu.Unlock()
		return
	}
	s.flushed = true
	s.mu.Unlock()

	for _, id := range s.chapters {
		sink.Invalidate(ctx, id)
	}
	for _, id := range s.stories {
		sink.Invalidate(ctx, id)
		sink.Rebuild(ctx, id)
	}
	for _, fn := range s.after {
		fn(ctx)
	}
}

// DirtyStories reports how many distinct stories the session has marked.
func (s *Session) DirtyStories() int { return len(s.stories) }

// DirtyChapters reports how many distinct chapters the session has marked.
func (s *Session) DirtyChapters() int { return len(s.chapters) }
