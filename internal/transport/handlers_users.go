package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rpggio/stepflow/internal/domain/project"
	"github.com/rpggio/stepflow/internal/domain/user"
)

const maxJSONBytes = 1 << 20

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt string     `json:"expires_at"`
	User      *user.User `json:"user"`
}

type registerResponse struct {
	Message string     `json:"message"`
	User    *user.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.svc.Users.Register(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{Message: "User registered successfully", User: u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateJSONSchema(credentialsLoader, body); err != nil {
		writeError(w, r, err, "Username and password required")
		return
	}
	var req loginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", project.ErrInvalidInput, err))
		return
	}

	u, err := s.svc.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	token, expires, err := s.svc.Tokens.Issue(u.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expires.UTC().Format("2006-01-02T15:04:05Z07:00"),
		User:      u,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.ListOthers(r.Context(), actor(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if users == nil {
		users = []user.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read body: %v", project.ErrInvalidInput, err)
	}
	return body, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", project.ErrInvalidInput, err)
	}
	return nil
}
