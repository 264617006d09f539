// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"time"
)

// DreamRecord represents a dream row.
// Seq records insertion order; replacing a dream keeps its Seq.
type DreamRecord struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Seq       int64     `gorm:"not null;index" json:"seq"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	Date      time.Time `gorm:"not null;index" json:"date"`
	Type      string    `gorm:"not null;index" json:"type"`
	Sentiment float64   `json:"sentiment"`
	Clarity   int       `json:"clarity"`
	Version   int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for DreamRecord
func (DreamRecord) TableName() string {
	return "dreams"
}

// DreamTag represents one tag of a dream, ordered by Position
type DreamTag struct {
	DreamID  string `gorm:"primaryKey" json:"dream_id"`
	Position int    `gorm:"primaryKey;autoIncrement:false" json:"position"`
	Tag      string `gorm:"not null;index" json:"tag"`
}

// TableName specifies the table name for DreamTag
func (DreamTag) TableName() string {
	return "dream_tags"
}

// DreamCharacter links a dream to a character id
type DreamCharacter struct {
	DreamID     string `gorm:"primaryKey" json:"dream_id"`
	Position    int    `gorm:"primaryKey;autoIncrement:false" json:"position"`
	CharacterID string `gorm:"not null;index" json:"character_id"`
}

// TableName specifies the table name for DreamCharacter
func (DreamCharacter) TableName() string {
	return "dream_characters"
}

// DreamLocation links a dream to a location id
type DreamLocation struct {
	DreamID    string `gorm:"primaryKey" json:"dream_id"`
	Position   int    `gorm:"primaryKey;autoIncrement:false" json:"position"`
	LocationID string `gorm:"not null;index" json:"location_id"`
}

// TableName specifies the table name for DreamLocation
func (DreamLocation) TableName() string {
	return "dream_locations"
}

// DreamRelation is one entry of a dream's ordered related set
type DreamRelation struct {
	DreamID   string    `gorm:"primaryKey" json:"dream_id"`
	RelatedID string    `gorm:"primaryKey" json:"related_id"`
	Position  int       `gorm:"not null" json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for DreamRelation
func (DreamRelation) TableName() string {
	return "dream_relations"
}

// CharacterRecord represents a character row. Appearances are derived from dream_characters.
type CharacterRecord struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	Seq             int64     `gorm:"not null;index" json:"seq"`
	Name            string    `gorm:"not null" json:"name"`
	Relationship    string    `json:"relationship"`
	Description     string    `gorm:"type:text" json:"description"`
	AvatarURL       string    `json:"avatar_url"`
	FirstAppearance time.Time `json:"first_appearance"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for CharacterRecord
func (CharacterRecord) TableName() string {
	return "characters"
}

// LocationRecord represents a location row. Appearances are derived from dream_locations.
type LocationRecord struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Seq         int64     `gorm:"not null;index" json:"seq"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for LocationRecord
func (LocationRecord) TableName() string {
	return "locations"
}

// JournalFlag is a persistent boolean marker such as the seed flag
type JournalFlag struct {
	Name      string    `gorm:"primaryKey" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for JournalFlag
func (JournalFlag) TableName() string {
	return "journal_flags"
}
