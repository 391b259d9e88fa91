package cli_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Amund211/notesync/internal/adapters/notesapi"
	"github.com/Amund211/notesync/internal/adapters/transport"
	"github.com/Amund211/notesync/internal/app"
	"github.com/Amund211/notesync/internal/cache"
	"github.com/Amund211/notesync/internal/cli"
	"github.com/Amund211/notesync/internal/domain"
	"github.com/Amund211/notesync/internal/domaintest"
	"github.com/Amund211/notesync/internal/ratelimiting"
	"github.com/Amund211/notesync/internal/session"
	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userEmail    = "jane@example.com"
	userPassword = "secret-password"
)

var now = time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// backend is an in memory notes server with a single user
type backend struct {
	t *testing.T

	mu            sync.Mutex
	token         string
	user          domain.User
	notes         []domain.Note
	invitations   []domain.NoteInvitation
	respondStatus int
	nextID        int
	calls         map[string]int
	listedPages   []int
}

func newBackend(t *testing.T) *backend {
	t.Helper()

	user := domaintest.NewUser("u1", "Jane", now)
	owner := domaintest.NewUser("u2", "", now)
	shared := domaintest.NewNoteBuilder("n3", owner.ID, now).WithTitle("Shared plans").Build()

	return &backend{
		t:    t,
		user: user,
		notes: []domain.Note{
			domaintest.NewNoteBuilder("n1", user.ID, now).WithTitle("Groceries").WithContent("milk").WithMember("u3", domain.NoteRoleEditor).Build(),
			domaintest.NewNoteBuilder("n2", user.ID, now.Add(-time.Hour)).WithTitle("Ideas").Build(),
		},
		invitations: []domain.NoteInvitation{
			domaintest.NewInvitation("i1", shared, owner, domain.NoteRoleViewer),
		},
		calls: map[string]int{},
	}
}

func (b *backend) expire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = ""
}

func (b *backend) setRespondStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.respondStatus = status
}

func (b *backend) callsTo(pattern string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[pattern]
}

func (b *backend) pagesListed() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.listedPages)
}

func queryInt(r *http.Request, name string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func userJSON(user domain.User) map[string]any {
	return map[string]any{
		"id":         user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
		"expires_at": user.ExpiresAt,
	}
}

func noteJSON(note domain.Note) map[string]any {
	members := make([]map[string]any, 0, len(note.Members))
	for _, member := range note.Members {
		members = append(members, map[string]any{
			"id":         member.ID,
			"email":      member.Email,
			"name":       member.Name,
			"role":       member.Role,
			"created_at": member.CreatedAt,
		})
	}
	return map[string]any{
		"id":      note.ID,
		"user_id": note.UserID,
		"title":   note.Title,
		"content": note.Content,
		"role":    note.Role,
		"owner": map[string]any{
			"id":    note.Owner.ID,
			"email": note.Owner.Email,
			"name":  note.Owner.Name,
		},
		"members":    members,
		"created_at": note.CreatedAt,
		"updated_at": note.UpdatedAt,
	}
}

func invitationJSON(invitation domain.NoteInvitation) map[string]any {
	return map[string]any{
		"id": invitation.ID,
		"note": map[string]any{
			"id":    invitation.Note.ID,
			"title": invitation.Note.Title,
		},
		"inviter": map[string]any{
			"id":    invitation.Inviter.ID,
			"email": invitation.Inviter.Email,
			"name":  invitation.Inviter.Name,
		},
		"role":       invitation.Role,
		"created_at": invitation.CreatedAt,
	}
}

func (b *backend) findNote(id string) (int, bool) {
	for i, note := range b.notes {
		if note.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] != userEmail || body["password"] != userPassword {
			writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		b.token = "token"
		http.SetCookie(w, &http.Cookie{Name: "session", Value: b.token, Path: "/"})
		writeJSON(w, http.StatusOK, userJSON(b.user))
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] == userEmail {
			writeMessage(w, http.StatusConflict, "Email already registered")
			return
		}
		writeJSON(w, http.StatusCreated, userJSON(domain.User{ID: "u9", Email: body["email"], CreatedAt: now, UpdatedAt: now}))
	})
	mux.HandleFunc("GET /api/auth/check", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, userJSON(b.user))
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.token = ""
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/notes", func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 1)
		pageSize := queryInt(r, "page_size", domain.DefaultNotesPageSize)
		b.listedPages = append(b.listedPages, page)

		start := min((page-1)*pageSize, len(b.notes))
		end := min(start+pageSize, len(b.notes))
		items := make([]map[string]any, 0, end-start)
		for _, note := range b.notes[start:end] {
			items = append(items, noteJSON(note))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items":     items,
			"total":     len(b.notes),
			"page":      page,
			"page_size": pageSize,
		})
	})
	mux.HandleFunc("POST /api/notes", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Title   string  `json:"title"`
			Content *string `json:"content"`
		}
		assert.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))

		b.nextID++
		note := domaintest.NewNoteBuilder(fmt.Sprintf("new%d", b.nextID), b.user.ID, now.Add(time.Hour)).WithTitle(body.Title).Build()
		note.Content = body.Content
		b.notes = append([]domain.Note{note}, b.notes...)
		writeJSON(w, http.StatusCreated, noteJSON(note))
	})
	mux.HandleFunc("GET /api/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		i, ok := b.findNote(r.PathValue("id"))
		if !ok {
			writeMessage(w, http.StatusNotFound, "Note not found")
			return
		}
		writeJSON(w, http.StatusOK, noteJSON(b.notes[i]))
	})
	mux.HandleFunc("PUT /api/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		i, ok := b.findNote(r.PathValue("id"))
		if !ok {
			writeMessage(w, http.StatusNotFound, "Note not found")
			return
		}
		var body struct {
			Title   string  `json:"title"`
			Content *string `json:"content"`
		}
		assert.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))
		b.notes[i].Title = body.Title
		b.notes[i].Content = body.Content
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /api/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		i, ok := b.findNote(r.PathValue("id"))
		if !ok {
			writeMessage(w, http.StatusNotFound, "Note not found")
			return
		}
		b.notes = append(b.notes[:i], b.notes[i+1:]...)
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("DELETE /api/notes/{id}/members/{memberID}", func(w http.ResponseWriter, r *http.Request) {
		i, ok := b.findNote(r.PathValue("id"))
		if !ok {
			writeMessage(w, http.StatusNotFound, "Note not found")
			return
		}
		b.notes[i] = b.notes[i].WithoutMember(r.PathValue("memberID"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PATCH /api/notes/{id}/members/{memberID}", func(w http.ResponseWriter, r *http.Request) {
		i, ok := b.findNote(r.PathValue("id"))
		if !ok {
			writeMessage(w, http.StatusNotFound, "Note not found")
			return
		}
		var body map[string]string
		assert.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))
		b.notes[i] = b.notes[i].WithMemberRole(r.PathValue("memberID"), domain.NoteRole(body["role"]))
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /api/note-invitations", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))
		if _, ok := b.findNote(body["note_id"]); !ok {
			writeMessage(w, http.StatusNotFound, "Note not found")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{})
	})
	mux.HandleFunc("GET /api/note-invitations", func(w http.ResponseWriter, r *http.Request) {
		items := make([]map[string]any, 0, len(b.invitations))
		for _, invitation := range b.invitations {
			items = append(items, invitationJSON(invitation))
		}
		writeJSON(w, http.StatusOK, items)
	})
	mux.HandleFunc("PATCH /api/note-invitations/{id}", func(w http.ResponseWriter, r *http.Request) {
		if b.respondStatus != 0 {
			writeMessage(w, b.respondStatus, "Something went wrong")
			return
		}
		b.invitations = domain.WithoutInvitation(b.invitations, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("PATCH /api/profile", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))
		name := body["name"]
		b.user.Name = &name
		w.WriteHeader(http.StatusNoContent)
	})

	public := map[string]bool{
		"POST /api/auth/login":    true,
		"POST /api/auth/register": true,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		_, pattern := mux.Handler(r)
		b.calls[pattern]++

		if !public[pattern] {
			cookie, err := r.Cookie("session")
			if err != nil || b.token == "" || cookie.Value != b.token {
				writeMessage(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
		}

		mux.ServeHTTP(w, r)
	})
}

type harness struct {
	backend *backend
	deps    cli.Dependencies
	// Session expiry notifications
	notices *syncBuffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	b := newBackend(t)
	server := httptest.NewServer(b.handler())
	t.Cleanup(server.Close)

	limiter, stop := ratelimiting.NewTokenBucketRateLimiter(1000, 1000)
	t.Cleanup(stop)
	httpClient, err := transport.NewHTTPClient(limiter)
	require.NoError(t, err)
	tr, err := transport.New(server.URL+"/api", httpClient, "notesync-test")
	require.NoError(t, err)
	api := notesapi.New(tr)

	client, err := cache.NewClient(t.Context(),
		cache.WithStaleTime(time.Hour),
		cache.WithBackOff(func() backoff.BackOff {
			return backoff.NewConstantBackOff(time.Millisecond)
		}),
		cache.WithLogger(slog.New(slog.DiscardHandler)),
	)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	notices := &syncBuffer{}

	authCheckQuery := app.BuildAuthCheckQuery(api)
	notesListQuery := app.BuildNotesListQuery(api)
	invitationsQuery := app.BuildInvitationsQuery(api)

	sess := session.New(
		client,
		authCheckQuery,
		app.BuildLogin(client, api),
		app.BuildLogout(client, api),
		session.WithOnExpired(cli.NotifySessionExpired(notices)),
	)
	t.Cleanup(sess.Close)
	tr.SetUnauthorizedHandler(sess.HandleUnauthorized)

	return &harness{
		backend: b,
		notices: notices,
		deps: cli.Dependencies{
			Client:  client,
			Session: sess,

			AuthCheckQuery:    authCheckQuery,
			NotesListQuery:    notesListQuery,
			NoteQuery:         app.BuildNoteQuery(api),
			InvitationsQuery:  invitationsQuery,
			PrefetchDashboard: app.BuildPrefetchDashboard(client, authCheckQuery, notesListQuery, invitationsQuery),

			Register:            app.BuildRegister(client, api),
			CreateNote:          app.BuildCreateNote(client, api),
			UpdateNote:          app.BuildUpdateNote(client, api),
			DeleteNote:          app.BuildDeleteNote(client, api),
			KickMember:          app.BuildKickMember(client, api),
			UpdateMemberRole:    app.BuildUpdateMemberRole(client, api),
			RespondToInvitation: app.BuildRespondToInvitation(client, api),
			SendInvitation:      app.BuildSendInvitation(client, api),
			UpdateName:          app.BuildUpdateName(client, api),
			UpdateEmail:         app.BuildUpdateEmail(client, api),
			UpdatePassword:      app.BuildUpdatePassword(client, api),
		},
	}
}

type result struct {
	stdout string
	stderr string
	err    error
}

// Run the command line like the binary does, printing errors to stderr
func (h *harness) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()

	stdout := &syncBuffer{}
	stderr := &syncBuffer{}

	root := cli.NewRootCommand(h.deps)
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(t.Context())
	if err != nil {
		cli.PrintError(stderr, err)
	}

	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	res := h.run(t, userPassword+"\n", "login", userEmail)
	require.NoError(t, res.err, res.stderr)
}

func requireInOrder(t *testing.T, output string, parts ...string) {
	t.Helper()
	rest := output
	for _, part := range parts {
		index := strings.Index(rest, part)
		require.GreaterOrEqual(t, index, 0, "%q not found in order in:\n%s", part, output)
		rest = rest[index+len(part):]
	}
}
