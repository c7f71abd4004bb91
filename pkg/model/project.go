package model

import (
	"time"

	"relaymesh/pkg/addr"
)

// ProjectRecord is the cached directory entry for a remote project: the
// route to its entry node plus the identity every message on that
// sub-route must present.
type ProjectRecord struct {
	Name       string       `json:"name"`
	Route      addr.Address `json:"route"`
	IdentityID string       `json:"identityId"`
}

// Project is the authority-side registry row that directory refreshes are
// served from.
type Project struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"uniqueIndex;size:64" json:"name"`
	Route      string    `json:"route"` // textual address form
	IdentityID string    `gorm:"size:128" json:"identityId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Record converts a registry row into the directory cache form.
func (p Project) Record() (ProjectRecord, error) {
	route, err := addr.Parse(p.Route)
	if err != nil {
		return ProjectRecord{}, err
	}
	return ProjectRecord{Name: p.Name, Route: route, IdentityID: p.IdentityID}, nil
}
