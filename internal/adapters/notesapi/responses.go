package notesapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Amund211/notesync/internal/domain"
)

var errEmptyResponse = errors.New("empty response")

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type noteOwnerResponse struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

type noteMemberResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type noteResponse struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	Title     string               `json:"title"`
	Content   *string              `json:"content"`
	Role      *string              `json:"role"`
	Owner     *noteOwnerResponse   `json:"owner"`
	Members   []noteMemberResponse `json:"members"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type paginationResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type invitationResponse struct {
	ID   string `json:"id"`
	Note struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"note"`
	Inviter struct {
		ID    string  `json:"id"`
		Email string  `json:"email"`
		Name  *string `json:"name"`
	} `json:"inviter"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func parseBody(statusCode int, data []byte, target any) error {
	if statusCode == http.StatusNoContent || len(data) == 0 {
		return fmt.Errorf("%w (status %d)", errEmptyResponse, statusCode)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func parseOptionalRole(raw *string) (*domain.NoteRole, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	role, err := domain.ParseNoteRole(*raw)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func userFromResponse(statusCode int, data []byte) (domain.User, error) {
	var response userResponse
	if err := parseBody(statusCode, data, &response); err != nil {
		return domain.User{}, err
	}
	if response.ID == "" {
		return domain.User{}, fmt.Errorf("user response is missing id")
	}

	return domain.User{
		ID:        response.ID,
		Email:     response.Email,
		Name:      response.Name,
		CreatedAt: response.CreatedAt,
		UpdatedAt: response.UpdatedAt,
		ExpiresAt: response.ExpiresAt,
	}, nil
}

func noteFromNoteResponse(response noteResponse) (domain.Note, error) {
	if response.ID == "" {
		return domain.Note{}, fmt.Errorf("note response is missing id")
	}

	role, err := parseOptionalRole(response.Role)
	if err != nil {
		return domain.Note{}, fmt.Errorf("failed to parse role of note: %w", err)
	}

	owner := domain.NoteOwner{ID: response.UserID}
	if response.Owner != nil {
		owner = domain.NoteOwner{
			ID:    response.Owner.ID,
			Email: response.Owner.Email,
			Name:  response.Owner.Name,
		}
	}

	members := make([]domain.NoteMember, 0, len(response.Members))
	for _, member := range response.Members {
		memberRole, err := domain.ParseNoteRole(member.Role)
		if err != nil {
			return domain.Note{}, fmt.Errorf("failed to parse role of member: %w", err)
		}
		members = append(members, domain.NoteMember{
			ID:        member.ID,
			Email:     member.Email,
			Name:      member.Name,
			Role:      memberRole,
			CreatedAt: member.CreatedAt,
		})
	}

	return domain.Note{
		ID:        response.ID,
		UserID:    response.UserID,
		Title:     response.Title,
		Content:   response.Content,
		Role:      role,
		Owner:     owner,
		Members:   members,
		CreatedAt: response.CreatedAt,
		UpdatedAt: response.UpdatedAt,
	}, nil
}

func noteFromResponse(statusCode int, data []byte) (domain.Note, error) {
	var response noteResponse
	if err := parseBody(statusCode, data, &response); err != nil {
		return domain.Note{}, err
	}
	return noteFromNoteResponse(response)
}

func notesPageFromResponse(statusCode int, data []byte) (domain.Pagination[domain.UserNote], error) {
	var response paginationResponse[noteResponse]
	if err := parseBody(statusCode, data, &response); err != nil {
		return domain.Pagination[domain.UserNote]{}, err
	}

	items := make([]domain.UserNote, 0, len(response.Items))
	for _, item := range response.Items {
		role, err := parseOptionalRole(item.Role)
		if err != nil {
			return domain.Pagination[domain.UserNote]{}, fmt.Errorf("failed to parse role of note %s: %w", item.ID, err)
		}
		items = append(items, domain.UserNote{
			ID:        item.ID,
			UserID:    item.UserID,
			Title:     item.Title,
			Role:      role,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		})
	}

	return domain.Pagination[domain.UserNote]{
		Items:    items,
		Total:    response.Total,
		Page:     response.Page,
		PageSize: response.PageSize,
	}, nil
}

func invitationsFromResponse(statusCode int, data []byte) ([]domain.NoteInvitation, error) {
	var response []invitationResponse
	if err := parseBody(statusCode, data, &response); err != nil {
		return nil, err
	}

	invitations := make([]domain.NoteInvitation, 0, len(response))
	for _, invitation := range response {
		role, err := domain.ParseNoteRole(invitation.Role)
		if err != nil {
			return nil, fmt.Errorf("failed to parse role of invitation %s: %w", invitation.ID, err)
		}
		invitations = append(invitations, domain.NoteInvitation{
			ID: invitation.ID,
			Note: domain.InvitationNote{
				ID:    invitation.Note.ID,
				Title: invitation.Note.Title,
			},
			Inviter: domain.Inviter{
				ID:    invitation.Inviter.ID,
				Email: invitation.Inviter.Email,
				Name:  invitation.Inviter.Name,
			},
			Role:      role,
			CreatedAt: invitation.CreatedAt,
		})
	}
	return invitations, nil
}
