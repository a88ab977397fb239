package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCaseReportVisibleTo(t *testing.T) {
	owner := uuid.New()
	viewer := uuid.New()
	uniA := uuid.New()
	uniB := uuid.New()

	tests := []struct {
		name       string
		privacy    PrivacyLevel
		viewer     uuid.UUID
		role       Role
		viewerUni  *uuid.UUID
		wantAccess bool
	}{
		{"public to anyone", PrivacyPublic, viewer, RoleStudent, nil, true},
		{"university only same university", PrivacyUniversityOnly, viewer, RoleStudent, &uniA, true},
		{"university only other university", PrivacyUniversityOnly, viewer, RoleEvaluator, &uniB, false},
		{"university only viewer without university", PrivacyUniversityOnly, viewer, RoleStudent, nil, false},
		{"private to others", PrivacyPrivate, viewer, RoleEvaluator, &uniA, false},
		{"private to owner", PrivacyPrivate, owner, RoleStudent, nil, true},
		{"private to admin", PrivacyPrivate, viewer, RoleAdmin, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &CaseReport{UserID: owner, UniversityID: &uniA, PrivacyLevel: tt.privacy}
			assert.Equal(t, tt.wantAccess, report.VisibleTo(tt.viewer, tt.role, tt.viewerUni))
		})
	}
}

func TestCaseStatusFinished(t *testing.T) {
	assert.True(t, StatusCompleted.Finished())
	assert.True(t, StatusRejected.Finished())
	assert.False(t, StatusPending.Finished())
	assert.False(t, StatusUnderReview.Finished())
}
