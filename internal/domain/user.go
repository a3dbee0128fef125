package domain

// User is the minimal user directory entry the workflow engine resolves acting users and assignees against
type User struct {
	BaseModel
	Username    string `gorm:"type:varchar(100);not null;uniqueIndex:uq_users_username" json:"username"`
	Email       string `gorm:"type:varchar(255);not null" json:"email"`
	DisplayName string `gorm:"type:varchar(255)" json:"display_name"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
