package packets

// returned for profile endpoints
type ProfileResponse struct {
	ID          int     `json:"id"`
	Email       string  `json:"email"`
	Name        *string `json:"name"`
	IsSuperuser bool    `json:"is_superuser"`
	CanPublish  bool    `json:"can_publish"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
