package model

// StudySection 学习资料（公民考试知识点）
type StudySection struct {
	BaseModel
	Slug     string `gorm:"size:120;uniqueIndex;not null" json:"slug" yaml:"slug"`
	Title    string `gorm:"size:200;not null" json:"title" yaml:"title"`
	Summary  string `gorm:"size:500" json:"summary" yaml:"summary"`
	Body     string `gorm:"type:text" json:"body,omitempty" yaml:"body"`
	Category string `gorm:"size:100;index" json:"category" yaml:"category"`
	Position int    `gorm:"default:0" json:"position" yaml:"position"`
	AssetKey string `gorm:"size:255" json:"-" yaml:"asset"`
	AssetURL string `gorm:"-" json:"assetUrl,omitempty" yaml:"-"`
}

func (StudySection) TableName() string {
	return "study_sections"
}
