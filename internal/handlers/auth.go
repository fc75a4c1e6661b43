package handlers

import (
    "encoding/json"
    "net/http"
    "os"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "golang.org/x/crypto/bcrypt"

    "github.com/WinAndronuX/mikrotik-integration/internal/middleware"
)

type LoginRequest struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
    var req LoginRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }

    if req.Email == "" || req.Password == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Email and password are required"})
        return
    }

    var operatorID int
    var email, passwordHash, role string
    var isActive bool
    err := h.db.QueryRow(
        "SELECT id, email, password_hash, role, is_active FROM operators WHERE email = $1",
        req.Email,
    ).Scan(&operatorID, &email, &passwordHash, &role, &isActive)

    if err != nil {
        h.logger.Warn("Login failed - operator not found", "email", req.Email)
        h.sendJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Invalid credentials"})
        return
    }

    if !isActive {
        h.sendJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Account is disabled"})
        return
    }

    if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
        h.logger.Warn("Login failed - invalid password", "email", req.Email)
        h.sendJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Invalid credentials"})
        return
    }

    token, err := generateJWT(operatorID, email, role)
    if err != nil {
        h.logger.Error("Failed to generate JWT", "error", err)
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to generate token"})
        return
    }

    h.logger.Info("Operator logged in", "operator_id", operatorID, "email", email)

    h.sendJSON(w, http.StatusOK, Response{
        Success: true,
        Message: "Login successful",
        Data: map[string]interface{}{
            "token": token,
            "operator": map[string]interface{}{
                "id":    operatorID,
                "email": email,
                "role":  role,
            },
        },
    })
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
    claims := middleware.GetUserFromContext(r)
    if claims == nil {
        h.sendJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Unauthorized"})
        return
    }

    token, err := generateJWT(claims.OperatorID, claims.Email, claims.Role)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to generate token"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{
        Success: true,
        Data:    map[string]string{"token": token},
    })
}

func generateJWT(operatorID int, email, role string) (string, error) {
    secret := os.Getenv("JWT_SECRET")
    if secret == "" {
        secret = "change-me-in-production"
    }

    claims := middleware.Claims{
        OperatorID: operatorID,
        Email:      email,
        Role:       role,
        RegisteredClaims: jwt.RegisteredClaims{
            ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
            IssuedAt:  jwt.NewNumericDate(time.Now()),
        },
    }

    token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return token.SignedString([]byte(secret))
}
