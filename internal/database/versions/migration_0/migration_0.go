package migration_0

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GradingTask struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Subject        string `gorm:"not null"`
	AssessmentType string `gorm:"not null"`
	Status         string `gorm:"size:20;not null"`

	AssignmentPath sql.NullString
	SolutionPath   sql.NullString
	RubricPath     sql.NullString

	SubmissionCount int `gorm:"default:0"`

	CreationTime   time.Time
	CompletionTime sql.NullTime

	Results datatypes.JSON
	Error   sql.NullString

	Submissions []Submission `gorm:"foreignKey:TaskId;constraint:OnDelete:CASCADE"`
}

type Submission struct {
	TaskId uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq    int       `gorm:"primaryKey"`

	FilePath string `gorm:"not null"`

	UsedOcr      bool `gorm:"default:false"`
	OverallScore sql.NullInt64
}

func Migration(db *gorm.DB) error {
	return db.AutoMigrate(&GradingTask{}, &Submission{})
}
