package api

import "relaymesh/pkg/model"

// DirectoryResponse is the node's view of its directory cache.
type DirectoryResponse struct {
	Nodes    []model.NodeRecord    `json:"nodes"`
	Projects []model.ProjectRecord `json:"projects"`
}

// ProjectUpsertRequest registers or updates a project at the authority.
type ProjectUpsertRequest struct {
	Name       string `json:"name"`
	Route      string `json:"route"`
	IdentityID string `json:"identityId"`
}
