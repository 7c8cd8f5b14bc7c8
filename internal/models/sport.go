package models

// Sport represents a sport known to the odds provider, keyed by its provider key
type Sport struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Key          string `gorm:"size:50;uniqueIndex;not null" json:"key"` // e.g. soccer_epl
	Group        string `gorm:"size:100" json:"group"`
	Title        string `gorm:"size:100" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	Active       bool   `gorm:"default:true" json:"active"`
	HasOutrights bool   `gorm:"default:false" json:"has_outrights"`
}

// TableName specifies the table name for Sport model
func (Sport) TableName() string {
	return "sports"
}
