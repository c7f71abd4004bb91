package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"relaymesh/pkg/addr"
	"relaymesh/pkg/auth"
	"relaymesh/pkg/model"
)

// AuthorityServer is the project authority's HTTP surface: the registry
// nodes refresh their directories from, plus operator accounts.
type AuthorityServer struct {
	DB *gorm.DB
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *AuthorityServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/v1/auth/register", a.handleRegister)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/projects", AuthMiddleware(a.handleProjects, true))
}

// handleProjects serves the project list consumed by directory refreshes
// and accepts registry updates.
func (a *AuthorityServer) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var projects []model.Project
		if err := a.DB.Order("name").Find(&projects).Error; err != nil {
			http.Error(w, "failed to list projects", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, projects)
	case http.MethodPost:
		var req ProjectUpsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if _, err := addr.Parse(req.Route); err != nil {
			http.Error(w, "invalid route: "+err.Error(), http.StatusBadRequest)
			return
		}
		project := model.Project{Name: req.Name, Route: req.Route, IdentityID: req.IdentityID}
		var existing model.Project
		err := a.DB.Where("name = ?", req.Name).First(&existing).Error
		switch {
		case err == nil:
			existing.Route = req.Route
			existing.IdentityID = req.IdentityID
			if err := a.DB.Save(&existing).Error; err != nil {
				http.Error(w, "failed to update project", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, existing)
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := a.DB.Create(&project).Error; err != nil {
				http.Error(w, "failed to create project", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusCreated, project)
		default:
			http.Error(w, "failed to query project", http.StatusInternalServerError)
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRegister only allows the first operator to be created (admin).
func (a *AuthorityServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	var count int64
	a.DB.Model(&model.User{}).Count(&count)
	if count > 0 {
		http.Error(w, "registration closed", http.StatusForbidden)
		return
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	user := model.User{Username: req.Username, PasswordHash: string(hash), IsAdmin: true}
	if err := a.DB.Create(&user).Error; err != nil {
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}
	issueToken(w, user.Username)
}

func (a *AuthorityServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	var user model.User
	if err := a.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	issueToken(w, user.Username)
}

func issueToken(w http.ResponseWriter, username string) {
	token, err := auth.Generate("", username, 24*time.Hour)
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// AuthMiddleware gates a handler behind a bearer credential when
// requireJWT is set.
func AuthMiddleware(next func(http.ResponseWriter, *http.Request), requireJWT bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireJWT {
			next(w, r)
			return
		}
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(h, "Bearer ")
		if _, err := auth.Parse(token); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
