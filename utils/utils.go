package utils

import (
	rndm "math/rand"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
)

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyz0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")

// GenerateRandomString creates a random alphanumeric string of length n.
func GenerateRandomString(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rndm.Intn(len(letterRunes))]
	}
	return string(b)
}

// NewID builds an entity identifier with a one-letter type prefix,
// e.g. "u3fK9x2LqPd" for a user.
func NewID(prefix string) string {
	return prefix + GenerateRandomString(10)
}

func GetUUID() string {
	return uuid.NewString()
}

// --- Image Validation ---

var SupportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

func ValidateImageFileType(w http.ResponseWriter, header *multipart.FileHeader) bool {
	mimeType := header.Header.Get("Content-Type")
	if !SupportedImageTypes[mimeType] {
		RespondWithError(w, http.StatusBadRequest, "Invalid file type. Supported formats: JPEG, PNG, WebP, GIF.")
		return false
	}
	return true
}
