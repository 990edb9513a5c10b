package pkg

import "github.com/google/uuid"

// GenerateClientID returns a fresh random (v4) client identity.
func GenerateClientID() string {
	return uuid.NewString()
}

// GenerateGameID returns a fresh random (v4) game id.
func GenerateGameID() string {
	return uuid.NewString()
}

// GenerateResumeToken returns the secret a client presents to resume its identity.
func GenerateResumeToken() string {
	return uuid.NewString()
}

// IsValidID reports whether id is a uuid in canonical form.
func IsValidID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}
