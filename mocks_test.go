package auth_test

import (
	"context"
	"sync"

	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/mock"

	"github.com/entraidehub/go-auth"
)

// testIdentity is a plain Identity fixture.
type testIdentity struct {
	id     string
	email  string
	role   auth.UserRole
	status auth.UserStatus
}

func (t testIdentity) ID() string              { return t.id }
func (t testIdentity) Email() string           { return t.email }
func (t testIdentity) Role() auth.UserRole     { return t.role }
func (t testIdentity) Status() auth.UserStatus { return t.status }

// MockIdentityProvider mocks auth.IdentityProvider.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (auth.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.Identity), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (auth.Identity, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.Identity), args.Error(1)
}

// recordingSink collects activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) EventTypes() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		types = append(types, e.EventType)
	}
	return types
}

// fakeResolverStore is a hand-rolled UserResolverStore, the variadic
// criteria argument makes testify mocks clumsy here.
type fakeResolverStore struct {
	users map[string]*auth.User
	err   error
}

func (f *fakeResolverStore) GetByID(_ context.Context, id string, _ ...repository.SelectCriteria) (*auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, repository.NewRecordNotFound()
}

// stubStateMachine applies any transition and counts invocations.
type stubStateMachine struct {
	transitions int
}

func (s *stubStateMachine) Transition(_ context.Context, _ auth.ActorRef, user *auth.User, target auth.UserStatus, _ ...auth.TransitionOption) (*auth.User, error) {
	s.transitions++
	user.Status = target
	return user, nil
}

func (s *stubStateMachine) CurrentStatus(user *auth.User) auth.UserStatus {
	if user == nil {
		return ""
	}
	return user.Status
}

// fakeUserTracker backs the UserProvider tests.
type fakeUserTracker struct {
	users             map[string]*auth.User
	attemptedTracked  int
	successfulTracked int
}

func (f *fakeUserTracker) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	if user, ok := f.users[auth.NormalizeEmail(email)]; ok {
		return user, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeUserTracker) GetByIdentifier(_ context.Context, identifier string, _ ...repository.SelectCriteria) (*auth.User, error) {
	for _, user := range f.users {
		if user.ID.String() == identifier {
			return user, nil
		}
	}
	if user, ok := f.users[auth.NormalizeEmail(identifier)]; ok {
		return user, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakeUserTracker) TrackAttemptedLogin(_ context.Context, user *auth.User) error {
	f.attemptedTracked++
	user.LoginAttempts++
	return nil
}

func (f *fakeUserTracker) TrackSuccessfulLogin(_ context.Context, user *auth.User) error {
	f.successfulTracked++
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	return nil
}
