package model

// Guide is a titled, categorized collection of tracks.
//
// Tracks are not embedded: they live in their own table / list and
// reference the guide by GuideID.
type Guide struct {
	ID          uint   `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Title       string `json:"title" gorm:"size:50;not null" validate:"required,max=50"`
	Description string `json:"description" gorm:"size:300;not null" validate:"max=300"`
	Category    string `json:"category" gorm:"not null" validate:"required"`
}

// Track is a single audio item of a guide.
//
// FilePath is a reference to the audio resource, resolved by an
// audiofilestore.Source when streamed. It is not checked on write.
type Track struct {
	ID       uint    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Title    string  `json:"title" gorm:"size:50;not null" validate:"max=50"`
	FilePath string  `json:"file_path" gorm:"not null" validate:"required"`
	Duration float64 `json:"duration" gorm:"not null" validate:"gte=0"`
	OrderNum int     `json:"order_num" gorm:"not null;index:idx_tracks_guide_order,priority:2"`
	GuideID  uint    `json:"guide_id" gorm:"not null;index:idx_tracks_guide_order,priority:1"`
}

const (
	MaxTitleLen       = 50
	MaxDescriptionLen = 300
)
