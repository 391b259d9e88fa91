package app_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/domain"
	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = time.Millisecond
)

func newTestClient(t *testing.T) *cache.Client {
	t.Helper()

	client, err := cache.NewClient(t.Context(),
		cache.WithStaleTime(time.Hour),
		cache.WithBackOff(func() backoff.BackOff {
			return backoff.NewConstantBackOff(time.Millisecond)
		}),
		cache.WithLogger(slog.New(slog.DiscardHandler)),
	)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

// mockAPI is an in-memory backend. Every call is recorded by name.
type mockAPI struct {
	mu    sync.Mutex
	calls []string

	user        *domain.User
	notes       []domain.UserNote
	note        domain.Note
	invitations []domain.NoteInvitation
	// Returned by every call when set
	err error
}

func (m *mockAPI) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.err
}

func (m *mockAPI) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockAPI) callsTo(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c == call {
			count++
		}
	}
	return count
}

func (m *mockAPI) allCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockAPI) CheckAuth(ctx context.Context) (domain.User, error) {
	if err := m.record("CheckAuth"); err != nil {
		return domain.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return domain.User{}, domain.ErrUnauthorized
	}
	return *m.user, nil
}

func (m *mockAPI) Register(ctx context.Context, input domain.RegisterInput) (domain.User, error) {
	if err := m.record("Register"); err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: "new", Email: input.Email}, nil
}

func (m *mockAPI) Login(ctx context.Context, input domain.LoginInput) (domain.User, error) {
	if err := m.record("Login"); err != nil {
		return domain.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &domain.User{ID: "u1", Email: input.Email}
	return *m.user, nil
}

func (m *mockAPI) Logout(ctx context.Context) error {
	if err := m.record("Logout"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	return nil
}

func (m *mockAPI) ListNotes(ctx context.Context, query domain.NotesQuery) (domain.Pagination[domain.UserNote], error) {
	if err := m.record("ListNotes"); err != nil {
		return domain.Pagination[domain.UserNote]{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.Pagination[domain.UserNote]{
		Items:    append([]domain.UserNote(nil), m.notes...),
		Total:    len(m.notes),
		Page:     query.Page,
		PageSize: query.PageSize,
	}, nil
}

func (m *mockAPI) GetNote(ctx context.Context, noteID string) (domain.Note, error) {
	if err := m.record("GetNote"); err != nil {
		return domain.Note{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.note.ID != noteID {
		return domain.Note{}, domain.ErrNotFound
	}
	return m.note, nil
}

func (m *mockAPI) CreateNote(ctx context.Context, input domain.NoteInput) (domain.Note, error) {
	if err := m.record("CreateNote"); err != nil {
		return domain.Note{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := input.Title
	m.notes = append([]domain.UserNote{{ID: id, Title: input.Title}}, m.notes...)
	return domain.Note{ID: id, Title: input.Title, Content: input.Content}, nil
}

func (m *mockAPI) UpdateNote(ctx context.Context, noteID string, input domain.NoteInput) error {
	return m.record("UpdateNote")
}

func (m *mockAPI) DeleteNote(ctx context.Context, noteID string) error {
	return m.record("DeleteNote")
}

func (m *mockAPI) KickMember(ctx context.Context, noteID, memberID string) error {
	if err := m.record("KickMember"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.note = m.note.WithoutMember(memberID)
	return nil
}

func (m *mockAPI) UpdateMemberRole(ctx context.Context, input domain.MemberRoleInput) error {
	if err := m.record("UpdateMemberRole"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.note = m.note.WithMemberRole(input.MemberID, input.Role)
	return nil
}

func (m *mockAPI) ListInvitations(ctx context.Context) ([]domain.NoteInvitation, error) {
	if err := m.record("ListInvitations"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.NoteInvitation(nil), m.invitations...), nil
}

func (m *mockAPI) RespondToInvitation(ctx context.Context, invitationID string, accept bool) error {
	if err := m.record("RespondToInvitation"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations = domain.WithoutInvitation(m.invitations, invitationID)
	return nil
}

func (m *mockAPI) SendInvitation(ctx context.Context, input domain.InvitationInput) error {
	return m.record("SendInvitation")
}

func (m *mockAPI) UpdateName(ctx context.Context, input domain.NameInput) error {
	if err := m.record("UpdateName"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user != nil {
		user := *m.user
		user.Name = &input.Name
		m.user = &user
	}
	return nil
}

func (m *mockAPI) UpdateEmail(ctx context.Context, input domain.EmailInput) error {
	return m.record("UpdateEmail")
}

func (m *mockAPI) UpdatePassword(ctx context.Context, input domain.PasswordUpdateInput) error {
	return m.record("UpdatePassword")
}
