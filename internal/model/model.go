package model

import (
	"time"

	"bonsaikeeper/internal/calendar"
)

// Species is a knowledge-base entry. CareInstructions is Markdown and may
// contain pipe tables.
type Species struct {
	ID               int64     `json:"id"`
	CommonName       string    `json:"common_name"`
	ScientificName   string    `json:"scientific_name"`
	Description      string    `json:"description"`
	CareInstructions string    `json:"care_instructions"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Tree statuses. A tree enters the graveyard through a GraveyardEntry and
// leaves it again on restore.
const (
	TreeActive    = "active"
	TreeGraveyard = "graveyard"
)

// Tree is a tracked specimen.
type Tree struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	SpeciesID        *int64          `json:"species_id"`
	AcquisitionDate  calendar.Date   `json:"acquisition_date"`
	OriginDate       calendar.Date   `json:"origin_date"`
	Location         string          `json:"location"`
	Notes            string          `json:"notes"`
	DevelopmentStage string          `json:"development_stage"`
	Status           string          `json:"status"`
	Graveyard        *GraveyardEntry `json:"graveyard_entry,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Graveyard categories offered by the UI.
const (
	GraveyardDead    = "dead"
	GraveyardSold    = "sold"
	GraveyardGifted  = "gifted"
	GraveyardRetired = "retired"
)

// GraveyardEntry records why and when a tree left the active collection.
type GraveyardEntry struct {
	ID       int64     `json:"id"`
	TreeID   int64     `json:"tree_id"`
	TreeName string    `json:"tree_name,omitempty"`
	Category string    `json:"category"`
	Note     string    `json:"note"`
	MovedAt  time.Time `json:"moved_at"`
}

// TreeUpdate is a journal entry for work done on a tree, optionally with a
// trunk measurement taken that day.
type TreeUpdate struct {
	ID              int64         `json:"id"`
	TreeID          int64         `json:"tree_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	PerformedOn     calendar.Date `json:"performed_on"`
	TrunkDiameterCM *float64      `json:"trunk_diameter_cm,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Reminder categories offered by the UI. Category is free text; these are
// just the common ones.
const (
	CategoryWatering    = "watering"
	CategoryFertilizing = "fertilizing"
	CategoryPruning     = "pruning"
	CategoryWiring      = "wiring"
	CategoryRepotting   = "repotting"
	CategoryPestControl = "pest_control"
)

// Reminder is a care task due on a calendar day. With a non-empty RRule
// (RFC 5545 recurrence, e.g. "FREQ=WEEKLY;INTERVAL=2") DueDate is the first
// occurrence. TreeName follows the linked tree's name when TreeID is set.
type Reminder struct {
	ID         int64         `json:"id"`
	TreeID     *int64        `json:"tree_id,omitempty"`
	TreeName   string        `json:"tree_name,omitempty"`
	Title      string        `json:"title"`
	Message    string        `json:"message"`
	Category   string        `json:"category,omitempty"`
	DueDate    calendar.Date `json:"due_date"`
	RRule      string        `json:"rrule,omitempty"`
	Read       bool          `json:"read"`
	NotifiedAt *time.Time    `json:"notified_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`

	// SourceID and UID are set on reminders parsed from a subscribed feed.
	// They are not persisted.
	SourceID string `json:"source_id,omitempty"`
	UID      string `json:"uid,omitempty"`
}

// Occurrence is a single due day of a reminder after recurrence expansion.
// Reminders from subscribed feeds have ReminderID 0 and a SourceID.
type Occurrence struct {
	ReminderID int64         `json:"reminder_id,omitempty"`
	SourceID   string        `json:"source_id"`
	UID        string        `json:"uid"`
	Title      string        `json:"title"`
	Message    string        `json:"message,omitempty"`
	Category   string        `json:"category,omitempty"`
	TreeID     int64         `json:"tree_id,omitempty"`
	TreeName   string        `json:"tree_name,omitempty"`
	Date       calendar.Date `json:"date"`
}
