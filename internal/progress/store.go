package progress

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/p-n-ai/pai-quest/internal/platform/apperr"
)

// Store persists progress rows, completion events, users and achievements.
// Implementations return copies; callers may modify what they get back.
type Store interface {
	GetProgress(ctx context.Context, userID, lessonID int64) (Progress, bool, error)
	ListProgress(ctx context.Context, userID int64) ([]Progress, error)
	// ListEvents returns the user's events created at or after since,
	// oldest first. A zero since returns the full history.
	ListEvents(ctx context.Context, userID int64, since time.Time) ([]Event, error)
	ListAllEvents(ctx context.Context, since time.Time) ([]Event, error)
	// GetUser fails with apperr.ErrNotFound for an unknown user.
	GetUser(ctx context.Context, userID int64) (User, error)
	SaveUser(ctx context.Context, u User) error
	ListUsers(ctx context.Context) ([]User, error)
	Apply(ctx context.Context, u Update) error
	// AddAchievement stores a unless the user already holds its code and
	// reports whether it was added.
	AddAchievement(ctx context.Context, a Achievement) (bool, error)
	// ListAchievements returns achievements ordered by earned_at then id.
	// userID 0 lists every user's.
	ListAchievements(ctx context.Context, userID int64) ([]Achievement, error)
}

type progressKey struct {
	userID   int64
	lessonID int64
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu           sync.RWMutex
	progress     map[progressKey]Progress
	events       []Event
	users        map[int64]User
	achievements []Achievement
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		progress: make(map[progressKey]Progress),
		users:    make(map[int64]User),
	}
}

func (s *MemoryStore) GetProgress(_ context.Context, userID, lessonID int64) (Progress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[progressKey{userID, lessonID}]
	return copyProgress(p), ok, nil
}

func (s *MemoryStore) ListProgress(_ context.Context, userID int64) ([]Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Progress{}
	for k, p := range s.progress {
		if k.userID == userID {
			out = append(out, copyProgress(p))
		}
	}
	slices.SortFunc(out, func(a, b Progress) int {
		return cmp.Compare(a.LessonID, b.LessonID)
	})
	return out, nil
}

func (s *MemoryStore) ListEvents(_ context.Context, userID int64, since time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Event{}
	for _, e := range s.events {
		if e.UserID == userID && !e.CreatedAt.Before(since) {
			out = append(out, copyEvent(e))
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *MemoryStore) ListAllEvents(_ context.Context, since time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Event{}
	for _, e := range s.events {
		if !e.CreatedAt.Before(since) {
			out = append(out, copyEvent(e))
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *MemoryStore) GetUser(_ context.Context, userID int64) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return User{}, apperr.NotFound("progress.GetUser", "user %d not found", userID)
	}
	return u, nil
}

func (s *MemoryStore) SaveUser(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.UserID] = u
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b User) int {
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out, nil
}

func (s *MemoryStore) Apply(_ context.Context, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[progressKey{u.Progress.UserID, u.Progress.LessonID}] = copyProgress(u.Progress)
	if u.Event != nil {
		s.events = append(s.events, copyEvent(*u.Event))
	}
	s.users[u.User.UserID] = u.User
	return nil
}

func (s *MemoryStore) AddAchievement(_ context.Context, a Achievement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, have := range s.achievements {
		if have.UserID == a.UserID && have.Code == a.Code {
			return false, nil
		}
	}
	s.achievements = append(s.achievements, a)
	return true, nil
}

func (s *MemoryStore) ListAchievements(_ context.Context, userID int64) ([]Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Achievement{}
	for _, a := range s.achievements {
		if userID == 0 || a.UserID == userID {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, compareAchievements)
	return out, nil
}

func compareAchievements(a, b Achievement) int {
	if c := a.EarnedAt.Compare(b.EarnedAt); c != 0 {
		return c
	}
	return slices.Compare(a.ID[:], b.ID[:])
}

// sortEvents orders events oldest first, keeping append order for ties.
func sortEvents(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

func copyProgress(p Progress) Progress {
	if p.Score != nil {
		v := *p.Score
		p.Score = &v
	}
	if p.FirstCompletedAt != nil {
		t := *p.FirstCompletedAt
		p.FirstCompletedAt = &t
	}
	return p
}

func copyEvent(e Event) Event {
	if e.Score != nil {
		v := *e.Score
		e.Score = &v
	}
	return e
}
