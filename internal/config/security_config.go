package config

type SecurityConfig interface {
	GetJWTSecret() string
	GetSuperUserEmail() string
	GetSuperUserPassword() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "change-me-in-production")
}

func (Security) GetSuperUserEmail() string {
	return GetEnv("SUPER_USER_EMAIL", "admin@test.com")
}

// GetSuperUserPassword is only used to seed the super user on first start
func (Security) GetSuperUserPassword() string {
	return GetEnv("SUPER_USER_PASSWORD", "password123")
}
