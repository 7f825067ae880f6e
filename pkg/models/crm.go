package models

import (
	"strings"
	"time"
)

type Contact struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone"`
	Company   string         `json:"company"`
	Source    string         `json:"source"`
	Status    string         `json:"status"`
	Tags      []string       `json:"tags"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Name joins first and last name.
func (c *Contact) Name() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// Fields exposes the contact to the field resolver, including the derived name.
func (c *Contact) Fields() map[string]any {
	tags := make([]any, 0, len(c.Tags))
	for _, tag := range c.Tags {
		tags = append(tags, tag)
	}

	return map[string]any{
		"id":         c.ID,
		"tenant_id":  c.TenantID,
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"name":       c.Name(),
		"email":      c.Email,
		"phone":      c.Phone,
		"company":    c.Company,
		"source":     c.Source,
		"status":     c.Status,
		"tags":       tags,
		"metadata":   c.Metadata,
		"created_at": c.CreatedAt,
		"updated_at": c.UpdatedAt,
	}
}

// ContactFields are the columns update_contact may write.
var ContactFields = []string{"first_name", "last_name", "email", "phone", "company", "source", "status"}

type ContactUpdate struct {
	Fields   map[string]string
	Metadata map[string]any
}

type Deal struct {
	ID                string         `json:"id"`
	TenantID          string         `json:"tenant_id"`
	ContactID         string         `json:"contact_id"`
	Title             string         `json:"title"`
	Value             float64        `json:"value"`
	Currency          string         `json:"currency"`
	Stage             string         `json:"stage"`
	ExpectedCloseDate *time.Time     `json:"expected_close_date"`
	Metadata          map[string]any `json:"metadata"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

const DefaultDealStage = "lead"

func (d *Deal) Fields() map[string]any {
	var closeDate any
	if d.ExpectedCloseDate != nil {
		closeDate = d.ExpectedCloseDate.Format("2006-01-02")
	}

	return map[string]any{
		"id":                  d.ID,
		"tenant_id":           d.TenantID,
		"contact_id":          d.ContactID,
		"title":               d.Title,
		"value":               d.Value,
		"currency":            d.Currency,
		"stage":               d.Stage,
		"expected_close_date": closeDate,
		"metadata":            d.Metadata,
		"created_at":          d.CreatedAt,
		"updated_at":          d.UpdatedAt,
	}
}

// DealUpdate nil fields are left untouched.
type DealUpdate struct {
	Title             *string
	Stage             *string
	Value             *float64
	ExpectedCloseDate *time.Time
	Metadata          map[string]any
}

func (u DealUpdate) Empty() bool {
	return u.Title == nil && u.Stage == nil && u.Value == nil && u.ExpectedCloseDate == nil && len(u.Metadata) == 0
}

type User struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type Notification struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	UserID    string         `json:"user_id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Link      string         `json:"link,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}
