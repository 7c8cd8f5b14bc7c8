package models

// Team represents a team scoped to a sport. The same name under two sports
// is two distinct rows.
type Team struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	SportID uint   `gorm:"not null;uniqueIndex:idx_teams_sport_name" json:"sport_id"`
	Sport   *Sport `gorm:"foreignKey:SportID" json:"sport,omitempty"`
	Name    string `gorm:"size:100;not null;uniqueIndex:idx_teams_sport_name" json:"name"`
}

// TableName specifies the table name for Team model
func (Team) TableName() string {
	return "teams"
}
