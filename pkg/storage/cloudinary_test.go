package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPublicID(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		wantID       string
		wantResource string
	}{
		{
			name:         "versioned pdf",
			url:          "https://res.cloudinary.com/demo/image/upload/v1712345678/caseflow/case-reports/17-chest-pain.pdf",
			wantID:       "caseflow/case-reports/17-chest-pain",
			wantResource: "image",
		},
		{
			name:         "raw without version",
			url:          "https://res.cloudinary.com/demo/raw/upload/avatars/me.png",
			wantID:       "avatars/me",
			wantResource: "raw",
		},
		{
			name:         "folder starting with v is not a version",
			url:          "https://res.cloudinary.com/demo/image/upload/videos/clip.png",
			wantID:       "videos/clip",
			wantResource: "image",
		},
		{
			name: "not cloudinary",
			url:  "https://example.com/file.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, resource := ExtractPublicID(tt.url)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantResource, resource)
		})
	}
}
