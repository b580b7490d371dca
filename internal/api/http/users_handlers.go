package http

import (
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type userRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"` // defaults to "user"
}

// POST /users  {username, password, role?}  (admin)
//
// Creates the user or resets its password and role, like `quizd useradd`.
func UpsertUserHandler(db *sql.DB, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Role == "" {
			req.Role = rbac.RoleUser
		}
		err := auth.UpsertUser(r.Context(), db, req.Username, req.Password, req.Role)
		if errors.Is(err, auth.ErrInvalidUser) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Info("user saved", zap.String("username", req.Username), zap.String("role", req.Role), zap.String("by", owner(r)))
		writeJSON(w, http.StatusOK, map[string]string{"username": req.Username, "role": req.Role})
	}
}
