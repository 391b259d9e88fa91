package domain

import "strings"

// 5 MB
const NoteMaxContentBytes = 5 * 1024 * 1024

type NoteInput struct {
	Title   string  `validate:"required,max=300"`
	Content *string `validate:"omitempty,maxbytes=5242880"`
}

func (i NoteInput) Normalized() NoteInput {
	i.Title = strings.TrimSpace(i.Title)
	return i
}

type InvitationInput struct {
	Email  string   `validate:"required,email"`
	NoteID string   `validate:"required"`
	Role   NoteRole `validate:"required,oneof=editor viewer"`
}

func (i InvitationInput) Normalized() InvitationInput {
	i.Email = strings.TrimSpace(i.Email)
	return i
}

type RegisterInput struct {
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8,max=64,nocontrol"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type NameInput struct {
	Name string `validate:"max=256"`
}

func (i NameInput) Normalized() NameInput {
	i.Name = strings.TrimSpace(i.Name)
	return i
}

type EmailInput struct {
	Email string `validate:"required,email"`
}

func (i EmailInput) Normalized() EmailInput {
	i.Email = strings.TrimSpace(i.Email)
	return i
}

type PasswordUpdateInput struct {
	CurrentPassword string `validate:"required"`
	Password        string `validate:"required,min=8,max=64,nocontrol"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

type MemberRoleInput struct {
	NoteID   string   `validate:"required"`
	MemberID string   `validate:"required"`
	Role     NoteRole `validate:"required,oneof=editor viewer"`
}
