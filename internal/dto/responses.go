package dto

import (
	"github.com/ignatzorin/servicehub-backend/internal/models"
)

// ErrorResponse единый формат ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// MessageResponse ответ без данных.
type MessageResponse struct {
	Message string `json:"message"`
}

// SignUpResponse user и, если код был отправлен, message.
type SignUpResponse struct {
	User    *models.User `json:"user"`
	Message string       `json:"message,omitempty"`
}

// AccessResponse ответ POST /auth/token/refresh.
type AccessResponse struct {
	Access string `json:"access"`
}

// ListResponse список с параметрами пагинации.
type ListResponse struct {
	Items  interface{} `json:"items"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
