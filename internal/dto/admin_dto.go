package dto

import "time"

type CreateSessionRequest struct {
	Password string `json:"password" validate:"max=256"`
}

type SessionResponse struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminIdentity is the caller attached to the gin context after the gate passes.
type AdminIdentity struct {
	UID       string `json:"uid,omitempty"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}
