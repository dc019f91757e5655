// Package models holds the directory records shared by the store, the
// search engine and the HTTP layer. JSON names follow the payloads the
// directory front end already consumes.
package models

import (
	"strings"
	"time"
)

// Category groups businesses, e.g. "Textiles" or "Dairy".
type Category struct {
	ID        int64     `json:"id" yaml:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `json:"categoryName" yaml:"categoryName" gorm:"column:category_name;not null;size:255" validate:"required,max=255"`
	CreatedAt time.Time `json:"created_at" yaml:"-" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-" gorm:"column:updated_at"`
}

func (Category) TableName() string { return "categories" }

// Keyword is a free-form tag attached to businesses.
type Keyword struct {
	ID        int64     `json:"id" yaml:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `json:"keyword_name" yaml:"keyword_name" gorm:"column:keyword_name;not null;size:255" validate:"required,max=255"`
	CreatedAt time.Time `json:"created_at" yaml:"-" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-" gorm:"column:updated_at"`
}

func (Keyword) TableName() string { return "keywords" }

// User is a registered directory member and business owner.
type User struct {
	ID          int64     `json:"id" yaml:"id" gorm:"column:id;primaryKey;autoIncrement"`
	FirstName   string    `json:"FirstName" yaml:"FirstName" gorm:"column:first_name;size:255" validate:"required,max=255"`
	MiddleName  string    `json:"MiddleName" yaml:"MiddleName" gorm:"column:middle_name;size:255" validate:"max=255"`
	LastName    string    `json:"LastName" yaml:"LastName" gorm:"column:last_name;size:255" validate:"max=255"`
	Email       string    `json:"Email" yaml:"Email" gorm:"column:email;size:255" validate:"omitempty,email,max=255"`
	PhoneNumber string    `json:"PhoneNumber" yaml:"PhoneNumber" gorm:"column:phone_number;size:32" validate:"max=32"`
	CityName    string    `json:"CityName" yaml:"CityName" gorm:"column:city_name;size:255"`
	VillageName string    `json:"VillageName" yaml:"VillageName" gorm:"column:village_name;size:255"`
	IsAdmin     bool      `json:"isAdmin" yaml:"isAdmin" gorm:"column:is_admin;default:false"`
	CreatedAt   time.Time `json:"created_at" yaml:"-" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-" gorm:"column:updated_at"`
}

func (User) TableName() string { return "users" }

// FullName joins the non-empty name parts with single spaces.
func (u User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.FirstName, u.MiddleName, u.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// SearchFields lists the user directory columns matched by free-text search.
// The name is joined the way the user list renders it, middle name included.
func (u User) SearchFields() []string {
	return []string{
		u.FirstName + " " + u.MiddleName + " " + u.LastName,
		u.Email,
		u.PhoneNumber,
	}
}

// Category reports no category; users are never category constrained.
func (User) Category() (int64, bool) { return 0, false }

// Business is a directory listing.
type Business struct {
	ID              int64     `json:"id" yaml:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Name            string    `json:"Name,omitempty" yaml:"Name" gorm:"column:name;size:255" validate:"max=255"`
	BusinessName    string    `json:"BusinessName" yaml:"BusinessName" gorm:"column:business_name;not null;size:255" validate:"required,max=255"`
	BusinessAddress string    `json:"BusinessAddress" yaml:"BusinessAddress" gorm:"column:business_address;size:1024" validate:"max=1024"`
	BusinessKeyword string    `json:"BusinessKeyword" yaml:"BusinessKeyword" gorm:"column:business_keyword;size:1024" validate:"max=1024"`
	BusinessLogo    string    `json:"BusinessLogo,omitempty" yaml:"BusinessLogo" gorm:"column:business_logo;size:1024"`
	PhoneNumber     string    `json:"PhoneNumber" yaml:"PhoneNumber" gorm:"column:phone_number;size:32" validate:"max=32"`
	CityName        string    `json:"CityName" yaml:"CityName" gorm:"column:city_name;size:255"`
	VillageName     string    `json:"VillageName" yaml:"VillageName" gorm:"column:village_name;size:255"`
	CategoryID      *int64    `json:"categoryid" yaml:"categoryid" gorm:"column:categoryid;index"`
	UserID          *int64    `json:"userid,omitempty" yaml:"userid" gorm:"column:user_id;index"`
	Owner           *User     `json:"UserDatum,omitempty" yaml:"-" gorm:"foreignKey:UserID;references:ID"`
	Keywords        []Keyword `json:"keywords" yaml:"keywords" gorm:"many2many:business_keywords;"`
	CreatedAt       time.Time `json:"created_at" yaml:"-" gorm:"column:created_at"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"-" gorm:"column:updated_at"`
}

func (Business) TableName() string { return "businesses" }

// KeywordNames returns the names of the attached keywords in order.
func (b Business) KeywordNames() []string {
	names := make([]string, 0, len(b.Keywords))
	for _, k := range b.Keywords {
		names = append(names, k.Name)
	}
	return names
}

// SearchFields is the public directory listing: business name then keywords.
func (b Business) SearchFields() []string {
	return append([]string{b.BusinessName}, b.KeywordNames()...)
}

func (b Business) Category() (int64, bool) {
	if b.CategoryID == nil {
		return 0, false
	}
	return *b.CategoryID, true
}

// PopularSearch counts how often a keyword was searched.
type PopularSearch struct {
	ID        int64     `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	Keyword   string    `json:"keyword" gorm:"column:keyword;uniqueIndex;not null;size:255"`
	Count     int64     `json:"count" gorm:"column:count;not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (PopularSearch) TableName() string { return "popular_searches" }
