package notesapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Amund211/notesync/internal/adapters/transport"
	"github.com/Amund211/notesync/internal/domain"
	"github.com/Amund211/notesync/internal/reporting"
)

type Requester interface {
	Request(ctx context.Context, method, path string, body any, params url.Values) (transport.Response, error)
}

// NotesAPI is a typed client for the notes backend
type NotesAPI struct {
	requester Requester
}

func New(requester Requester) *NotesAPI {
	return &NotesAPI{requester: requester}
}

func notePath(noteID string) string {
	return "/notes/" + url.PathEscape(noteID)
}

func memberPath(noteID, memberID string) string {
	return notePath(noteID) + "/members/" + url.PathEscape(memberID)
}

func invitationPath(invitationID string) string {
	return "/note-invitations/" + url.PathEscape(invitationID)
}

func notesQueryParams(query domain.NotesQuery) url.Values {
	params := url.Values{}
	if query.Search != "" {
		params.Set("q", query.Search)
	}
	if query.Role != "" {
		params.Set("role", string(query.Role))
	}
	if query.Sort != "" {
		params.Set("sort", query.Sort)
	}
	if query.Order != "" {
		params.Set("order", string(query.Order))
	}
	if query.Page > 0 {
		params.Set("page", strconv.Itoa(query.Page))
	}
	if query.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(query.PageSize))
	}
	return params
}

// Issue the request and convert the response, reporting responses we can't understand
func request[T any](
	ctx context.Context,
	api *NotesAPI,
	method, path string,
	body any,
	params url.Values,
	convert func(statusCode int, data []byte) (T, error),
) (T, error) {
	var zero T

	resp, err := api.requester.Request(ctx, method, path, body, params)
	if err != nil {
		// Already reported by the transport when unexpected
		return zero, err
	}

	if convert == nil {
		return zero, nil
	}

	result, err := convert(resp.Status, resp.Data)
	if err != nil {
		err := fmt.Errorf("failed to convert response from %s %s: %w", method, path, err)
		reporting.Report(ctx, err, map[string]string{
			"data":   string(resp.Data),
			"status": strconv.Itoa(resp.Status),
		})
		return zero, err
	}
	return result, nil
}

func (api *NotesAPI) CheckAuth(ctx context.Context) (domain.User, error) {
	return request(ctx, api, http.MethodGet, "/auth/check", nil, nil, userFromResponse)
}

func (api *NotesAPI) Register(ctx context.Context, input domain.RegisterInput) (domain.User, error) {
	body := map[string]string{
		"email":            input.Email,
		"password":         input.Password,
		"confirm_password": input.ConfirmPassword,
	}
	return request(ctx, api, http.MethodPost, "/auth/register", body, nil, userFromResponse)
}

func (api *NotesAPI) Login(ctx context.Context, input domain.LoginInput) (domain.User, error) {
	body := map[string]string{
		"email":    input.Email,
		"password": input.Password,
	}
	return request(ctx, api, http.MethodPost, "/auth/login", body, nil, userFromResponse)
}

func (api *NotesAPI) Logout(ctx context.Context) error {
	_, err := request[struct{}](ctx, api, http.MethodPost, "/auth/logout", nil, nil, nil)
	return err
}

func (api *NotesAPI) ListNotes(ctx context.Context, query domain.NotesQuery) (domain.Pagination[domain.UserNote], error) {
	return request(ctx, api, http.MethodGet, "/notes", nil, notesQueryParams(query), notesPageFromResponse)
}

func (api *NotesAPI) GetNote(ctx context.Context, noteID string) (domain.Note, error) {
	return request(ctx, api, http.MethodGet, notePath(noteID), nil, nil, noteFromResponse)
}

func noteBody(input domain.NoteInput) map[string]any {
	return map[string]any{
		"title":   input.Title,
		"content": input.Content,
	}
}

func (api *NotesAPI) CreateNote(ctx context.Context, input domain.NoteInput) (domain.Note, error) {
	return request(ctx, api, http.MethodPost, "/notes", noteBody(input), nil, noteFromResponse)
}

func (api *NotesAPI) UpdateNote(ctx context.Context, noteID string, input domain.NoteInput) error {
	_, err := request[struct{}](ctx, api, http.MethodPut, notePath(noteID), noteBody(input), nil, nil)
	return err
}

func (api *NotesAPI) DeleteNote(ctx context.Context, noteID string) error {
	_, err := request[struct{}](ctx, api, http.MethodDelete, notePath(noteID), nil, nil, nil)
	return err
}

func (api *NotesAPI) KickMember(ctx context.Context, noteID, memberID string) error {
	_, err := request[struct{}](ctx, api, http.MethodDelete, memberPath(noteID, memberID), nil, nil, nil)
	return err
}

func (api *NotesAPI) UpdateMemberRole(ctx context.Context, input domain.MemberRoleInput) error {
	body := map[string]string{"role": string(input.Role)}
	_, err := request[struct{}](ctx, api, http.MethodPatch, memberPath(input.NoteID, input.MemberID), body, nil, nil)
	return err
}

func (api *NotesAPI) ListInvitations(ctx context.Context) ([]domain.NoteInvitation, error) {
	return request(ctx, api, http.MethodGet, "/note-invitations", nil, nil, invitationsFromResponse)
}

func (api *NotesAPI) RespondToInvitation(ctx context.Context, invitationID string, accept bool) error {
	body := map[string]bool{"accept": accept}
	_, err := request[struct{}](ctx, api, http.MethodPatch, invitationPath(invitationID), body, nil, nil)
	return err
}

func (api *NotesAPI) SendInvitation(ctx context.Context, input domain.InvitationInput) error {
	body := map[string]string{
		"email":   input.Email,
		"note_id": input.NoteID,
		"role":    string(input.Role),
	}
	_, err := request[struct{}](ctx, api, http.MethodPost, "/note-invitations", body, nil, nil)
	return err
}

func (api *NotesAPI) UpdateName(ctx context.Context, input domain.NameInput) error {
	body := map[string]string{"name": input.Name}
	_, err := request[struct{}](ctx, api, http.MethodPatch, "/profile", body, nil, nil)
	return err
}

func (api *NotesAPI) UpdateEmail(ctx context.Context, input domain.EmailInput) error {
	body := map[string]string{"email": input.Email}
	_, err := request[struct{}](ctx, api, http.MethodPatch, "/profile/email", body, nil, nil)
	return err
}

func (api *NotesAPI) UpdatePassword(ctx context.Context, input domain.PasswordUpdateInput) error {
	body := map[string]string{
		"current_password": input.CurrentPassword,
		"password":         input.Password,
		"confirm_password": input.ConfirmPassword,
	}
	_, err := request[struct{}](ctx, api, http.MethodPatch, "/profile/password", body, nil, nil)
	return err
}
