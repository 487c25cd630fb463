package catalog

import (
	"encoding/json"
	"log"
	"mime/multipart"
	"net/http"

	"merx/models"
	"merx/utils"
)

// uploadAll validates and uploads every file, writing the error response
// itself when something fails.
func (s *Service) uploadAll(w http.ResponseWriter, r *http.Request, files []*multipart.FileHeader) ([]models.Image, bool) {
	if s.images == nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Image hosting is not configured")
		return nil, false
	}

	images := make([]models.Image, 0, len(files))
	for _, header := range files {
		if !utils.ValidateImageFileType(w, header) {
			return nil, false
		}

		file, err := header.Open()
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Error reading uploaded file")
			return nil, false
		}

		img, err := s.images.UploadImage(r.Context(), file)
		file.Close()
		if err != nil {
			log.Printf("catalog: image upload failed: %v", err)
			utils.RespondWithError(w, http.StatusBadGateway, "Error uploading images")
			return nil, false
		}
		images = append(images, img)
	}
	return images, true
}

// destroyAll removes hosted assets best-effort; a failed destroy only logs.
func (s *Service) destroyAll(r *http.Request, images []models.Image) {
	if s.images == nil {
		return
	}
	for _, img := range images {
		if err := s.images.Destroy(r.Context(), img.PublicID); err != nil {
			log.Printf("catalog: failed to destroy asset %s: %v", img.PublicID, err)
		}
	}
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
