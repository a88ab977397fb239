package bootstrap

import (
	"log/slog"

	"caseflow.dev/caseflowlearn/internal/entity"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.University{},
		&entity.Department{},
		&entity.Topic{},
		&entity.User{},
		&entity.Profile{},
		&entity.CaseReport{},
		&entity.CaseLike{},
		&entity.Evaluation{},
		&entity.EvaluatorTopic{},
		&entity.Notification{},
	)
}

var defaultUniversities = map[string][]string{
	"Harvard Medical School":              {"Internal Medicine", "Pediatrics", "Surgery"},
	"Johns Hopkins School of Medicine":    {"Cardiology", "Emergency Medicine", "Neurology"},
	"University of Oxford Medical School": {"Clinical Medicine", "Psychiatry"},
}

var defaultTopics = []entity.Topic{
	{Name: "Cardiology", Description: stringPtr("Heart and vascular cases")},
	{Name: "Emergency Medicine", Description: stringPtr("Acute presentations and trauma")},
	{Name: "Infectious Disease", Description: stringPtr("Bacterial, viral and fungal infections")},
	{Name: "Neurology", Description: stringPtr("Central and peripheral nervous system")},
	{Name: "Pediatrics", Description: stringPtr("Neonatal to adolescent cases")},
}

// SeedReferenceData inserts universities, their departments and topics that do
// not exist yet. It is safe to run on every start.
func SeedReferenceData(db *gorm.DB) error {
	for name, departments := range defaultUniversities {
		university := entity.University{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&university).Error; err != nil {
			return err
		}

		for _, deptName := range departments {
			dept := entity.Department{Name: deptName, UniversityID: university.ID}
			if err := db.Where("university_id = ? AND name = ?", university.ID, deptName).
				FirstOrCreate(&dept).Error; err != nil {
				return err
			}
		}
	}

	for _, topic := range defaultTopics {
		t := topic
		if err := db.Where("name = ?", t.Name).FirstOrCreate(&t).Error; err != nil {
			return err
		}
	}

	return nil
}

// SeedAdminUser creates the development admin account.
func SeedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", "admin@caseflow.dev").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		slog.Info("admin user already exists, skipping seed")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin := entity.User{
			Email:        "admin@caseflow.dev",
			PasswordHash: string(hashed),
			Role:         entity.RoleAdmin,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		profile := entity.Profile{
			UserID:   admin.ID,
			FullName: "Administrator",
			Role:     entity.RoleAdmin,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		slog.Info("admin user seeded", "email", admin.Email)
		return nil
	})
}

func stringPtr(s string) *string {
	return &s
}
